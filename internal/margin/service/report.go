package service

import (
	"fmt"

	"margin-service/internal/margin/model"
)

// BuildReport отличает полный успех, частичный импорт и полный отказ.
func BuildReport(res model.ParseResult) model.ImportReport {
	rep := model.ImportReport{
		Imported: len(res.Records),
		Errors:   res.Errors,
	}
	if rep.Errors == nil {
		rep.Errors = []model.ImportError{}
	}
	switch {
	case rep.Imported == 0:
		rep.Kind = model.ReportError
		rep.Message = "Проверьте правильность данных."
	case len(res.Errors) > 0:
		rep.Kind = model.ReportWarning
		rep.Skipped = len(res.Errors)
		rep.Message = fmt.Sprintf("Импортировано: %d, пропущено: %d", rep.Imported, rep.Skipped)
	default:
		rep.Kind = model.ReportSuccess
		rep.Message = fmt.Sprintf("Импортировано: %d.", rep.Imported)
	}
	return rep
}
