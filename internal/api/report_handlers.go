package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"dostavka/internal/db"
	"dostavka/internal/utils"
)

// ExportSettlementsReport выгружает расчеты за период в Excel-файл.
// Параметры from/to в формате YYYY-MM-DD; по умолчанию — последние 30 дней.
func ExportSettlementsReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(cfg.BusinessLocation)
	from := now.AddDate(0, 0, -30)
	to := now

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", fromStr, cfg.BusinessLocation)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "некорректный параметр from, ожидается YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", toStr, cfg.BusinessLocation)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "некорректный параметр to, ожидается YYYY-MM-DD")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		writeJSONError(w, http.StatusBadRequest, "параметр to раньше from")
		return
	}

	rows, err := db.GetSettlementsForReport(from, to)
	if err != nil {
		log.Printf("ExportSettlementsReport: ошибка получения данных для отчета: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "ошибка получения данных для отчета")
		return
	}

	f := excelize.NewFile()
	sheetName := "Расчеты"
	index, _ := f.NewSheet(sheetName)
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headers := []string{"ID", "Водитель", "Телефон", "Дата", "Наличные", "Онлайн", "Заработок водителя", "Доля владельца", "Водитель → владелец", "Владелец → водитель", "Статус", "Финализирован"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	rowIndex := 2
	for _, s := range rows {
		driverName := s.DriverFirstName
		if s.DriverLastName.Valid {
			driverName += " " + s.DriverLastName.String
		}

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowIndex), s.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowIndex), driverName)
		if s.DriverPhone.Valid {
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowIndex), s.DriverPhone.String)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowIndex), s.ReportDate.Format("02.01.2006"))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowIndex), utils.FormatMoney(s.CashCollected))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowIndex), utils.FormatMoney(s.OnlineCollected))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowIndex), utils.FormatMoney(s.DriverEarned))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowIndex), utils.FormatMoney(s.OwnerEarned))
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", rowIndex), utils.FormatMoney(s.DriverToOwner))
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", rowIndex), utils.FormatMoney(s.OwnerToDriver))
		f.SetCellValue(sheetName, fmt.Sprintf("K%d", rowIndex), s.Status)
		if s.SettledAt.Valid {
			f.SetCellValue(sheetName, fmt.Sprintf("L%d", rowIndex), s.SettledAt.Time.In(cfg.BusinessLocation).Format("02.01.2006 15:04"))
		}
		rowIndex++
	}

	filename := fmt.Sprintf("settlements_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := f.Write(w); err != nil {
		log.Printf("ExportSettlementsReport: ошибка записи Excel-файла в ответ: %v", err)
	}
}
