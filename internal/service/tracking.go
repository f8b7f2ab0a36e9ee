package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/repository"
	"github.com/liamroyal/etsy-software/internal/validation"
)

// Заголовки столбцов таблицы трек-номеров, выгружаемой из Etsy.
const (
	trackingOrderHeader  = "order-number"
	trackingNumberHeader = "tracking"
)

// TrackingUploadResult содержит итог загрузки таблицы трек-номеров.
type TrackingUploadResult struct {
	Added    []string                   `json:"added"`
	Existing []string                   `json:"existing"`
	Invalid  []model.InvalidTrackingRow `json:"invalid"`
}

// ParseTrackingSheet читает первый лист книги Excel и разделяет строки на
// корректные и ошибочные. Первая строка листа должна содержать заголовки.
func ParseTrackingSheet(r io.Reader) (model.TrackingImport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.TrackingImport{}, fmt.Errorf("%w: failed to read excel file: %v", validation.ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.TrackingImport{}, fmt.Errorf("%w: workbook has no sheets", validation.ErrValidation)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return model.TrackingImport{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return model.TrackingImport{}, fmt.Errorf("%w: sheet %q is empty", validation.ErrValidation, sheets[0])
	}

	orderCol, trackingCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case trackingOrderHeader:
			orderCol = i
		case trackingNumberHeader:
			trackingCol = i
		}
	}
	if orderCol < 0 || trackingCol < 0 {
		return model.TrackingImport{}, fmt.Errorf("%w: sheet must have %q and %q columns",
			validation.ErrValidation, "order-number", "Tracking")
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var res model.TrackingImport
	for i, row := range rows[1:] {
		orderNumber := cell(row, orderCol)
		trackingNumber := cell(row, trackingCol)
		if orderNumber == "" && trackingNumber == "" {
			continue
		}

		if errs := validation.TrackingRowErrors(orderNumber, trackingNumber); len(errs) > 0 {
			res.Invalid = append(res.Invalid, model.InvalidTrackingRow{
				Row:            i + 2,
				OrderNumber:    orderNumber,
				TrackingNumber: trackingNumber,
				Errors:         errs,
			})
			continue
		}

		res.Valid = append(res.Valid, model.TrackingRecord{
			OrderNumber:    orderNumber,
			TrackingNumber: trackingNumber,
			TrackingLink:   repository.TrackingLink(trackingNumber),
		})
	}
	return res, nil
}

// UploadTracking разбирает таблицу и сохраняет корректные строки. Заказы, для
// которых трек-номер уже сохранён, не перезаписываются.
func (s *Service) UploadTracking(ctx context.Context, r io.Reader) (TrackingUploadResult, error) {
	parsed, err := ParseTrackingSheet(r)
	if err != nil {
		return TrackingUploadResult{}, err
	}

	res := TrackingUploadResult{
		Added:    make([]string, 0, len(parsed.Valid)),
		Existing: []string{},
		Invalid:  parsed.Invalid,
	}
	if res.Invalid == nil {
		res.Invalid = []model.InvalidTrackingRow{}
	}

	for _, t := range parsed.Valid {
		err := s.repo.AddTracking(ctx, t)
		switch {
		case err == nil:
			res.Added = append(res.Added, t.OrderNumber)
		case errors.Is(err, repository.ErrTrackingExists):
			res.Existing = append(res.Existing, t.OrderNumber)
		default:
			s.logger.Error("failed to save tracking number",
				zap.Error(err),
				zap.String("order_number", t.OrderNumber),
			)
			return res, fmt.Errorf("save tracking %s: %w", t.OrderNumber, err)
		}
	}

	s.logger.Info("tracking sheet uploaded",
		zap.Int("added", len(res.Added)),
		zap.Int("existing", len(res.Existing)),
		zap.Int("invalid", len(res.Invalid)),
	)
	return res, nil
}

// ListTracking возвращает сохранённые трек-номера.
func (s *Service) ListTracking(ctx context.Context) ([]model.TrackingRecord, error) {
	return s.repo.ListTracking(ctx)
}

// UpdateTracking изменяет трек-номер заказа или отметку об отправке.
func (s *Service) UpdateTracking(ctx context.Context, orderNumber string, u repository.TrackingUpdate) (model.TrackingRecord, error) {
	if u.TrackingNumber != nil {
		trimmed := strings.TrimSpace(*u.TrackingNumber)
		if trimmed == "" {
			return model.TrackingRecord{}, fmt.Errorf("%w: tracking number is required", validation.ErrValidation)
		}
		u.TrackingNumber = &trimmed
	}
	return s.repo.UpdateTracking(ctx, orderNumber, u)
}
