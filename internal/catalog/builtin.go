package catalog

import "github.com/iurnickita/coursebot/internal/model"

type material struct {
	id   string
	name string
}

// Материалы по курсам и семестрам
var universityYears = []struct {
	year      int
	semesters map[int][]material
}{
	{3, map[int][]material{
		1: {
			{"y3_s1_algo_ds", "خوارزميات وبنى معطيات"},
			{"y3_s1_os1", "نظم تشغيل 1"},
			{"y3_s1_computing", "حوسبة"},
		},
		2: {
			{"y3_s2_complexity", "تعقيد"},
			{"y3_s2_ai_principles", "مبادئ الذكاء"},
			{"y3_s2_se1", "هندسة برمجيات 1"},
			{"y3_s2_comp_arch1", "بنيان حواسيب 1"},
		},
	}},
	{4, map[int][]material{
		1: {
			{"y4_s1_multimedia", "نظم وسائط متعددة"},
			{"y4_s1_concurrent", "برمجة تفرعية"},
			{"y4_s1_nn", "الشبكات العصبونية"},
			{"y4_s1_smart_search", "خوارزميات بحث ذكية"},
		},
		2: {
			{"y4_s2_compilers", "بناء مترجمات"},
			{"y4_s2_cv", "رؤية حاسوبية"},
			{"y4_s2_project", "مشروع فصلي"},
		},
	}},
	{5, map[int][]material{
		1: {
			{"y5_s1_prob_logic", "منطق ترجيحي"},
		},
		2: {
			{"y5_s2_nlp", "معالجة اللغات الطبيعية"},
			{"y5_s2_kd", "استكشاف معرفة"},
			{"y5_s2_rl", "تعلم معزز"},
		},
	}},
}

const materialDescription = "متابعة المادة الجامعية بشكل منظّم خلال الفصل الدراسي: ملخصات، " +
	"اختبارات قصيرة بعد كل محاضرة، تدريب عملي على أسئلة سابقة، تقييم دوري للتقدم."

var professionalCourses = []model.Item{
	{
		ID:       "nlp_beginner",
		Name:     "معالجة اللغات الطبيعية - مبتدئ",
		Duration: "6 أشهر",
		Content: []string{
			"أساسيات الرياضيات",
			"Python",
			"تعلم الآلة (Machine Learning)",
			"التعلم العميق (Deep Learning)",
			"معالجة اللغات الطبيعية (NLP)",
		},
	},
	{
		ID:       "nlp_intermediate",
		Name:     "معالجة اللغات الطبيعية - متوسط",
		Duration: "3 أشهر",
		Content: []string{
			"تعلم الآلة (Machine Learning)",
			"التعلم العميق (Deep Learning)",
			"معالجة اللغات الطبيعية (NLP)",
		},
	},
	{
		ID:       "nlp_expert",
		Name:     "معالجة اللغات الطبيعية - خبير",
		Duration: "شهر",
		Content:  []string{"تطبيقات متقدمة في NLP"},
	},
}

// DefaultItems возвращает встроенный каталог. price - цена одной позиции.
func DefaultItems(price int) []model.Item {
	var items []model.Item
	for _, c := range professionalCourses {
		c.Price = price
		c.Category = model.CategoryProfessional
		c.Content = append([]string(nil), c.Content...)
		items = append(items, c)
	}
	for _, y := range universityYears {
		for _, sem := range []int{1, 2} {
			for _, m := range y.semesters[sem] {
				items = append(items, model.Item{
					ID:          m.id,
					Name:        m.name,
					Description: materialDescription,
					Price:       price,
					Category:    model.CategoryUniversity,
					Year:        y.year,
					Semester:    sem,
				})
			}
		}
	}
	return items
}
