package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iurnickita/coursebot/internal/model"
)

// Старая схема courses.json

type legacyCourses struct {
	CourseInfo struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		TotalDuration string `json:"total_duration"`
	} `json:"course_info"`
	Levels             map[string]legacyLevel `json:"levels"`
	UniversitySubjects []legacySubject        `json:"university_subjects"`
}

type legacyLevel struct {
	Name     string   `json:"name"`
	Goal     string   `json:"goal"`
	Duration string   `json:"duration"`
	Topics   []string `json:"topics"`
}

type legacySubject struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var levelIDs = map[string]string{
	"beginner":     "nlp_beginner",
	"intermediate": "nlp_intermediate",
	"advanced":     "nlp_expert",
}

var levelRank = map[string]int{"beginner": 0, "intermediate": 1, "advanced": 2}

const defaultCourseName = "الدورة الاحترافية"

// ParseCourses разбирает резервный courses.json. Пустые данные - пустой каталог.
func ParseCourses(data []byte, price int) ([]model.Item, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var doc legacyCourses
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse courses: %w", err)
	}

	keys := make([]string, 0, len(doc.Levels))
	for key := range doc.Levels {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := levelRank[keys[i]]
		rj, jok := levelRank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})

	courseName := doc.CourseInfo.Name
	if courseName == "" {
		courseName = defaultCourseName
	}

	var items []model.Item
	for _, key := range keys {
		level := doc.Levels[key]
		id, ok := levelIDs[key]
		if !ok {
			id = "nlp_" + key
		}
		levelName := level.Name
		if levelName == "" {
			levelName = key
		}
		description := level.Goal
		if description == "" {
			description = doc.CourseInfo.Description
		}
		duration := level.Duration
		if duration == "" {
			duration = doc.CourseInfo.TotalDuration
		}
		items = append(items, model.Item{
			ID:          id,
			Name:        courseName + " - " + levelName,
			Description: description,
			Price:       price,
			Category:    model.CategoryProfessional,
			Duration:    duration,
			Content:     level.Topics,
		})
	}

	for _, subj := range doc.UniversitySubjects {
		id := strings.ToLower(subj.Code)
		if id != "" {
			id = "uni_" + id
		} else {
			id = strings.ReplaceAll(strings.ToLower(subj.Name), " ", "_")
		}
		if id == "" {
			id = "subject"
		}
		name := subj.Name
		if name == "" {
			name = id
		}
		items = append(items, model.Item{
			ID:          id,
			Name:        name,
			Description: subj.Description,
			Price:       price,
			Category:    model.CategoryUniversity,
		})
	}
	return items, nil
}

// Links - ссылки на группы: плоский словарь или разделы courses/materials.
type Links struct {
	Flat      map[string]string
	Courses   map[string]string
	Materials map[string]string
}

// ParseLinks разбирает group_links.json в обоих вариантах схемы.
func ParseLinks(data []byte) (Links, error) {
	if len(data) == 0 {
		return Links{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Links{}, fmt.Errorf("parse group links: %w", err)
	}

	links := Links{Flat: make(map[string]string)}
	for key, value := range raw {
		var link string
		if err := json.Unmarshal(value, &link); err == nil {
			links.Flat[key] = link
			continue
		}
		var section map[string]string
		if err := json.Unmarshal(value, &section); err != nil {
			// неизвестный формат раздела пропускаем
			continue
		}
		switch key {
		case "courses":
			links.Courses = section
		case "materials":
			links.Materials = section
		}
	}
	return links, nil
}

func (l Links) Lookup(id string) (string, bool) {
	for _, section := range []map[string]string{l.Flat, l.Courses, l.Materials} {
		if link, ok := section[id]; ok && link != "" {
			return link, true
		}
	}
	return "", false
}

// materialItems превращает ключи раздела materials в университетские материалы.
func (l Links) materialItems(price int) []model.Item {
	ids := make([]string, 0, len(l.Materials))
	for id := range l.Materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		year, semester := parseCoordinates(id)
		items = append(items, model.Item{
			ID:       id,
			Name:     niceMaterialName(id),
			Price:    price,
			Category: model.CategoryUniversity,
			Year:     year,
			Semester: semester,
		})
	}
	return items
}

// parseCoordinates извлекает год и семестр из id вида y4_s1_nn.
func parseCoordinates(id string) (year, semester int) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) < 3 || !strings.HasPrefix(parts[0], "y") || !strings.HasPrefix(parts[1], "s") {
		return 0, 0
	}
	y, err := strconv.Atoi(parts[0][1:])
	if err != nil {
		return 0, 0
	}
	s, err := strconv.Atoi(parts[1][1:])
	if err != nil {
		return 0, 0
	}
	return y, s
}

func niceMaterialName(key string) string {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "neural_networks"):
		return "الشبكات العصبونية"
	case strings.HasSuffix(k, "_os") || strings.HasSuffix(k, "_operating_systems") || k == "os":
		return "نظم تشغيل"
	case strings.Contains(k, "multimedia"):
		return "ملتميديا"
	case strings.Contains(k, "ai_principles") || strings.Contains(k, "ai101"):
		return "مبادئ الذكاء الصنعي"
	case strings.Contains(k, "algorithms"):
		return "الخوارزميات"
	case strings.Contains(k, "python"):
		return "بايثون"
	case strings.Contains(k, "concurrent") || strings.Contains(k, "parallel"):
		return "برمجة متزامنة"
	}
	return strings.ReplaceAll(key, "_", " ")
}
