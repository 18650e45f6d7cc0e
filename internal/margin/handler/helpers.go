package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"margin-service/internal/margin/model"
	"margin-service/internal/middleware"
)

const defaultOwner = "local"

// ownerOf — владелец данных; без заголовка — общий локальный набор.
func ownerOf(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(middleware.UserHeader)); v != "" {
		return v
	}
	return defaultOwner
}

func toBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// numberField принимает и JSON-число, и строку в русском формате ("1 234,50 ₽").
type numberField string

func (n *numberField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numberField(s)
	default:
		var f json.Number
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("number expected: %w", err)
		}
		*n = numberField(f.String())
	}
	return nil
}

type formInput struct {
	SKU          string      `json:"sku"`
	Price        numberField `json:"price"`
	Cost         numberField `json:"cost"`
	FeePct       numberField `json:"feePct"`
	Logistics    numberField `json:"logistics"`
	ReplaceBySKU *bool       `json:"replaceBySku,omitempty"`
}

type bundleResponse struct {
	Rows    []model.ComputedRecord `json:"rows"`
	Totals  model.Totals           `json:"totals"`
	Count   int                    `json:"count"`
	History []model.HistoryPoint   `json:"history"`
}

type importResponse struct {
	Report model.ImportReport `json:"report"`
	bundleResponse
}

type previewResponse struct {
	Row   model.ComputedRecord `json:"row"`
	Error string               `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

func historyChanged(prev, next model.HistoryState) bool {
	if prev.Version != next.Version || len(prev.Points) != len(next.Points) {
		return true
	}
	a, okA := prev.Last()
	b, okB := next.Last()
	return okA != okB || !a.Timestamp.Equal(b.Timestamp) || a.MarginPct != b.MarginPct
}
