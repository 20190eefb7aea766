package worker

// zreport_worker.go
// Processes report render jobs from QueueZReport: generates the Z-report
// PDF, records the outcome on the report row and hands the attachment to
// the email queue.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zolijavos/KGC-3-sub017/internal/infra"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ZReportJobPayload is the job envelope sent to QueueZReport.
type ZReportJobPayload struct {
	ZReportID string `json:"zreport_id"`
}

type ZReportWorker struct {
	zreports       repository.ZReportRepository
	dispatcher     *Dispatcher
	pdfStoragePath string
	reportEmail    string
}

func NewZReportWorker(zreports repository.ZReportRepository, dispatcher *Dispatcher, pdfStoragePath, reportEmail string) *ZReportWorker {
	return &ZReportWorker{
		zreports:       zreports,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
		reportEmail:    reportEmail,
	}
}

// Process renders one report:
//  1. Parse ZReportJobPayload from the job envelope
//  2. Fetch the report; skip if already rendered (jobs may be redelivered)
//  3. Generate the PDF and record the outcome
//  4. Enqueue the back-office email with the PDF attached
func (w *ZReportWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ZReportJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("zreport_worker: invalid payload")
		return
	}
	reportID, err := uuid.Parse(payload.ZReportID)
	if err != nil {
		log.Error().Str("zreport_id", payload.ZReportID).Msg("zreport_worker: invalid zreport_id")
		return
	}

	report, err := w.zreports.FindByID(ctx, reportID)
	if err != nil {
		log.Error().Err(err).Str("zreport_id", payload.ZReportID).Msg("zreport_worker: report not found")
		return
	}
	if report.RenderStatus == model.RenderDone {
		log.Debug().Str("session_number", report.SessionNumber).Msg("zreport_worker: already rendered, skipping")
		return
	}

	pdfPath, err := infra.GenerateZReportPDF(report, w.pdfStoragePath)
	if err != nil {
		report.RenderStatus = model.RenderFailed
		report.RetryCount++
		msg := err.Error()
		report.RenderError = &msg
		if uerr := w.zreports.UpdateRender(ctx, report); uerr != nil {
			log.Error().Err(uerr).Str("zreport_id", payload.ZReportID).Msg("zreport_worker: failed to record render failure")
		}
		log.Error().Err(err).Str("session_number", report.SessionNumber).Msg("zreport_worker: PDF generation failed")
		return
	}

	report.RenderStatus = model.RenderDone
	report.RenderError = nil
	report.PDFPath = &pdfPath
	if err := w.zreports.UpdateRender(ctx, report); err != nil {
		log.Error().Err(err).Str("zreport_id", payload.ZReportID).Msg("zreport_worker: failed to record render success")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("session_number", report.SessionNumber).Msg("zreport_worker: PDF generated")

	if w.reportEmail == "" {
		return
	}
	subject := fmt.Sprintf("Z-report %s", report.SessionNumber)
	body := fmt.Sprintf("Session %s closed with variance %s HUF.\nThe reconciliation report is attached.",
		report.SessionNumber, report.Variance.StringFixed(0))
	if report.Provisional {
		body += "\n\nNOTE: this report is provisional, the variance is awaiting manager approval."
	}
	emailJob := EmailJobPayload{
		ToEmail: w.reportEmail,
		Subject: subject,
		Body:    body,
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("session_number", report.SessionNumber).Msg("zreport_worker: failed to enqueue email")
	}
}
