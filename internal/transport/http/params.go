package http

import (
	"net/http"
	"strconv"
	"strings"

	apierrors "rcnpulse/internal/errors"
	"rcnpulse/pkg/contracts/domain"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// parseOrigins splits a comma-separated origins parameter. An absent
// parameter yields nil, which selects every origin; a present but empty
// one yields an empty selection.
func parseOrigins(r *http.Request) []string {
	values, ok := r.URL.Query()["origins"]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseInt reads an optional integer parameter; absent means zero
func parseInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.InvalidParameter(name, raw)
	}
	return n, nil
}

func parseFilters(r *http.Request) (domain.Filters, error) {
	horizon, err := parseInt(r, "horizon")
	if err != nil {
		return domain.Filters{}, err
	}
	return domain.Filters{
		Grade:   strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("grade"))),
		Origins: parseOrigins(r),
		Horizon: horizon,
	}, nil
}

func parseFormat(r *http.Request) (string, error) {
	switch f := strings.ToLower(r.URL.Query().Get("format")); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatCSV:
		return formatCSV, nil
	default:
		return "", apierrors.ErrValidation("format", "format must be json or csv")
	}
}
