package utils

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListParams — параметры списочных запросов (sortBy/sortDir/limit/offset/hideClosed).
// SortBy здесь — сырой ключ из запроса; проверка по белому списку колонок
// выполняется на уровне репозитория.
type ListParams struct {
	SortBy     string
	SortDir    string
	Limit      int
	Offset     int
	HideClosed bool
}

func ParseListParams(query url.Values) ListParams {
	params := ListParams{
		SortBy:  "createdAt",
		SortDir: "desc",
		Limit:   DefaultLimit,
		Offset:  0,
	}

	if sortBy := query.Get("sortBy"); sortBy != "" {
		params.SortBy = sortBy
	}
	if dir := strings.ToLower(query.Get("sortDir")); dir == "asc" || dir == "desc" {
		params.SortDir = dir
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			if l > MaxLimit {
				params.Limit = MaxLimit
			} else {
				params.Limit = l
			}
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	if hc := query.Get("hideClosed"); hc != "" {
		if b, err := strconv.ParseBool(hc); err == nil {
			params.HideClosed = b
		}
	}

	return params
}

// ParseOptionalUint64 возвращает nil для пустой строки.
func ParseOptionalUint64(s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseOptionalDate принимает RFC3339 либо YYYY-MM-DD.
func ParseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseOptionalDateEnd — как ParseOptionalDate, но дата без времени
// трактуется как конец суток: верхняя граница фильтра включает весь
// указанный день. Явное RFC3339-время не корректируется.
func ParseOptionalDateEnd(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	t = t.Add(24*time.Hour - time.Nanosecond)
	return &t, nil
}
