package pricing

import (
	"github.com/iurnickita/coursebot/internal/catalog"
	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/pricing/config"
)

// Summary - расчёт стоимости выбора для показа пользователю.
type Summary struct {
	Count             int
	UniversityCount   int
	UnitPrice         int // цена одного материала с учётом скидки
	Discounted        bool
	UniversityTotal   int
	ProfessionalTotal int
	Total             int
}

type Engine struct {
	catalog     catalog.Catalog
	singlePrice int
	multiPrice  int
}

func New(cfg config.Config, catalog catalog.Catalog) *Engine {
	return &Engine{
		catalog:     catalog,
		singlePrice: cfg.SinglePrice,
		multiPrice:  cfg.MultiPrice,
	}
}

// Price возвращает итоговую сумму выбора. Неизвестный id - catalog.ErrNotFound.
func (e *Engine) Price(ids []string) (int, error) {
	summary, err := e.Quote(ids)
	if err != nil {
		return 0, err
	}
	return summary.Total, nil
}

func (e *Engine) Quote(ids []string) (Summary, error) {
	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		item, err := e.catalog.Resolve(id)
		if err != nil {
			return Summary{}, err
		}
		items = append(items, item)
	}
	return e.QuoteItems(items), nil
}

// QuoteItems считает стоимость: материалы по ступенчатой цене
// (1 шт - singlePrice, от 2 шт - multiPrice за каждую), курсы по своей цене.
// Повторяющиеся id учитываются один раз.
func (e *Engine) QuoteItems(items []model.Item) Summary {
	var s Summary
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		s.Count++

		if item.Category == model.CategoryUniversity {
			s.UniversityCount++
			continue
		}
		s.ProfessionalTotal += item.Price
	}

	switch {
	case s.UniversityCount == 1:
		s.UnitPrice = e.singlePrice
	case s.UniversityCount >= 2:
		s.UnitPrice = e.multiPrice
		s.Discounted = true
	}
	s.UniversityTotal = s.UnitPrice * s.UniversityCount
	s.Total = s.UniversityTotal + s.ProfessionalTotal
	return s
}
