package view

import (
	"sort"
	"strings"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
)

// DateRange - предикат принадлежности к диапазону дат
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// Filter - локальное состояние фильтров производного представления.
// Нулевые значения означают отсутствие ограничения.
type Filter struct {
	Category models.Category
	Status   models.Status
	Verified *bool
	Search   string
	Range    DateRange
}

// Project - чистая функция: из сырого снимка и состояния фильтров
// строит новый отсортированный срез. Входной срез не изменяется.
func Project(items []models.Incident, f Filter) []models.Incident {
	return projectAt(items, f, time.Now())
}

func projectAt(items []models.Incident, f Filter, now time.Time) []models.Incident {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Incident, 0, len(items))
	for _, it := range items {
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if f.Verified != nil && it.Verified != *f.Verified {
			continue
		}
		if search != "" && !matchesSearch(it, search) {
			continue
		}
		if !inRange(it.CreatedAt, f.Range, now) {
			continue
		}
		out = append(out, it)
	}

	// Стабильная сортировка: при равных created_at сохраняется порядок ленты
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// matchesSearch проверяет вхождение подстроки в заголовок, описание
// или категорию без учета регистра
func matchesSearch(it models.Incident, search string) bool {
	return strings.Contains(strings.ToLower(it.Title), search) ||
		strings.Contains(strings.ToLower(it.Description), search) ||
		strings.Contains(strings.ToLower(string(it.Category)), search)
}

func inRange(t time.Time, r DateRange, now time.Time) bool {
	switch r {
	case RangeToday:
		y1, m1, d1 := t.Local().Date()
		y2, m2, d2 := now.Local().Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case RangeWeek:
		return t.After(now.AddDate(0, 0, -7))
	case RangeMonth:
		return t.After(now.AddDate(0, -1, 0))
	default:
		return true
	}
}
