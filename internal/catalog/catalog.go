package catalog

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/iurnickita/coursebot/internal/catalog/config"
	"github.com/iurnickita/coursebot/internal/model"
)

// Catalog - read-only справочник курсов и материалов.
type Catalog interface {
	Resolve(id string) (model.Item, error)
	List(category model.Category) []model.Item
	ListSemester(year, semester int) []model.Item
	GroupLink(id string) (string, bool)
}

var ErrNotFound = errors.New("item not found")

// MaxIDLen - предел длины id позиции. Данные inline-кнопки Telegram не длиннее 64 байт,
// самая длинная кнопка: "admin_approve_" + id пользователя (до 19 цифр) + "_" + id позиции.
const MaxIDLen = 64 - len("admin_approve_") - 19 - 1

// ValidID сообщает, помещается ли id во все данные кнопок.
func ValidID(id string) bool {
	return id != "" && len(id) <= MaxIDLen
}

type catalog struct {
	items map[string]model.Item
	order []string
	links Links
}

// New объединяет основной каталог с резервным: при совпадении id побеждает основной.
// Позиции с недопустимым id (см. ValidID) пропускаются.
func New(primary []model.Item, fallback []model.Item, links Links) Catalog {
	c := &catalog{
		items: make(map[string]model.Item, len(primary)+len(fallback)),
		links: links,
	}
	for _, src := range [][]model.Item{primary, fallback} {
		for _, item := range src {
			if !ValidID(item.ID) {
				continue
			}
			if _, ok := c.items[item.ID]; ok {
				continue
			}
			c.items[item.ID] = item
			c.order = append(c.order, item.ID)
		}
	}
	return c
}

// Build собирает каталог из встроенных данных и резервных источников из конфигурации.
func Build(ctx context.Context, cfg config.Config, singlePrice int, zaplog *zap.Logger) (Catalog, error) {
	primary := DefaultItems(singlePrice)

	coursesData, err := Fetch(ctx, cfg.CoursesSource)
	if err != nil {
		return nil, err
	}
	fallback, err := ParseCourses(coursesData, singlePrice)
	if err != nil {
		return nil, err
	}

	linksData, err := Fetch(ctx, cfg.LinksSource)
	if err != nil {
		return nil, err
	}
	links, err := ParseLinks(linksData)
	if err != nil {
		return nil, err
	}
	fallback = append(fallback, links.materialItems(singlePrice)...)

	for _, item := range fallback {
		if !ValidID(item.ID) {
			zaplog.Error("catalog item skipped: id does not fit telegram callback data",
				zap.String("item_id", item.ID), zap.Int("max_len", MaxIDLen))
		}
	}

	return New(primary, fallback, links), nil
}

func (c *catalog) Resolve(id string) (model.Item, error) {
	item, ok := c.items[id]
	if !ok {
		return model.Item{}, ErrNotFound
	}
	return item, nil
}

func (c *catalog) List(category model.Category) []model.Item {
	var items []model.Item
	for _, id := range c.order {
		if item := c.items[id]; item.Category == category {
			items = append(items, item)
		}
	}
	return items
}

func (c *catalog) ListSemester(year, semester int) []model.Item {
	var items []model.Item
	for _, item := range c.List(model.CategoryUniversity) {
		if item.Year == year && item.Semester == semester {
			items = append(items, item)
		}
	}
	return items
}

func (c *catalog) GroupLink(id string) (string, bool) {
	return c.links.Lookup(id)
}

// Years возвращает курсы, для которых в каталоге есть материалы.
func Years(c Catalog) []int {
	seen := make(map[int]bool)
	var years []int
	for _, item := range c.List(model.CategoryUniversity) {
		if item.Year != 0 && !seen[item.Year] {
			seen[item.Year] = true
			years = append(years, item.Year)
		}
	}
	sort.Ints(years)
	return years
}
