package http

import (
	"encoding/json"
	"net/http"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
	"strconv"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractDateRange reads a required start/end pair of YYYY-MM-DD query parameters.
func ExtractDateRange(r *http.Request) (model.DateRange, error) {
	query := r.URL.Query()
	start, end := query.Get("start"), query.Get("end")
	if start == "" || end == "" {
		return model.DateRange{}, apperrors.InvalidInput("both 'start' and 'end' query parameters are required")
	}

	dr, err := model.ParseDateRange(start, end)
	if err != nil {
		return model.DateRange{}, apperrors.InvalidInput(err.Error())
	}
	return dr, nil
}

// ExtractOptionalDateRange is ExtractDateRange for filters where the range may be omitted.
func ExtractOptionalDateRange(r *http.Request) (*model.DateRange, error) {
	query := r.URL.Query()
	if query.Get("start") == "" && query.Get("end") == "" {
		return nil, nil
	}
	dr, err := ExtractDateRange(r)
	if err != nil {
		return nil, err
	}
	return &dr, nil
}

func DecodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.InvalidInput("Invalid request body")
	}
	return nil
}
