package model

import (
	"fmt"
	"time"
)

// Field — каноническая колонка входного файла.
type Field string

const (
	FieldSKU       Field = "sku"
	FieldPrice     Field = "price"
	FieldCost      Field = "cost"
	FieldFeePct    Field = "feePct"
	FieldLogistics Field = "logistics"
)

// Fields — позиционный порядок колонок, когда заголовка нет.
var Fields = [...]Field{FieldSKU, FieldPrice, FieldCost, FieldFeePct, FieldLogistics}

// Origin — откуда у записи идентификатор.
type Origin int

const (
	OriginLocal     Origin = iota // id сгенерирован локально, хранилищу не отправляется
	OriginPersisted               // id выдан хранилищем, upsert обновит ту же строку
)

func (o Origin) String() string {
	if o == OriginPersisted {
		return "persisted"
	}
	return "local"
}

type Record struct {
	ID        string  `json:"id"`
	SKU       string  `json:"sku"`       // отображаемое имя/артикул
	Price     float64 `json:"price"`     // ₽, >= 0
	Cost      float64 `json:"cost"`      // себестоимость, ₽, >= 0
	FeePct    float64 `json:"feePct"`    // комиссия маркетплейса, [0..100]
	Logistics float64 `json:"logistics"` // логистика, ₽, >= 0
	Origin    Origin  `json:"-"`
}

// PersistedID возвращает id, только если его выдало хранилище:
// тогда upsert обновляет строку, иначе вставляет новую.
func (r Record) PersistedID() (string, bool) {
	if r.Origin == OriginPersisted && r.ID != "" {
		return r.ID, true
	}
	return "", false
}

// Status — знак прибыли строки.
type Status string

const (
	StatusProfit Status = "Прибыль"
	StatusLoss   Status = "Убыток"
	StatusZero   Status = "Ноль"
)

type ComputedRecord struct {
	Record
	Rev       float64 `json:"rev"`
	Fee       float64 `json:"fee"`
	Direct    float64 `json:"direct"`
	Profit    float64 `json:"profit"`
	MarginPct float64 `json:"marginPct"` // уже зажата в [-100..100]
	Status    Status  `json:"status"`
}

type Totals struct {
	Rev       float64 `json:"rev"`
	Fee       float64 `json:"fee"`
	Direct    float64 `json:"direct"`
	Profit    float64 `json:"profit"`
	MarginPct float64 `json:"marginPct"`
}

// Bundle — пересчитанная коллекция целиком.
type Bundle struct {
	Rows   []ComputedRecord `json:"rows"`
	Totals Totals           `json:"totals"`
}

type HistoryPoint struct {
	Timestamp time.Time `json:"ts"`
	MarginPct float64   `json:"margin"`
}

// HistoryState — неизменяемое состояние ряда «общая маржа во времени».
type HistoryState struct {
	Version string         `json:"version"`
	Points  []HistoryPoint `json:"points"`
}

// Last возвращает последнюю точку ряда.
func (h HistoryState) Last() (HistoryPoint, bool) {
	if len(h.Points) == 0 {
		return HistoryPoint{}, false
	}
	return h.Points[len(h.Points)-1], true
}

type ImportError struct {
	Line    int    `json:"line"` // 1-based, 0 — ошибка файла целиком
	Message string `json:"message"`
}

// String — сообщение в виде, показываемом пользователю.
func (e ImportError) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("Строка %d: %s", e.Line, e.Message)
	}
	return e.Message
}

type ReportKind string

const (
	ReportSuccess ReportKind = "success"
	ReportWarning ReportKind = "warning"
	ReportError   ReportKind = "error"
)

type ImportReport struct {
	Kind     ReportKind    `json:"kind"`
	Imported int           `json:"importedCount"`
	Skipped  int           `json:"skippedCount"`
	Message  string        `json:"message"`
	Errors   []ImportError `json:"errors"`
}

// ParseResult — результат разбора файла импорта.
type ParseResult struct {
	Records   []Record      `json:"records"`
	Errors    []ImportError `json:"errors"`
	HasHeader bool          `json:"hasHeader"`
	Separator string        `json:"separator"`
	Fatal     bool          `json:"fatal"` // структурная ошибка: файл отклонён целиком
}
