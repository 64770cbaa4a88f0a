package services

import (
	"bytes"
	"context"
	"fmt"

	"gestion-backend/internal/models"
	"gestion-backend/internal/timeutil"
	"gestion-backend/internal/workflow"

	"github.com/jung-kurt/gofpdf/v2"
)

type ReportService struct {
	Orders *OrderService
}

func NewReportService(orders *OrderService) *ReportService {
	return &ReportService{Orders: orders}
}

// OrderReport renders the PDF of an order the actor can see and returns it
// with its download name.
func (s *ReportService) OrderReport(ctx context.Context, actor Actor, id int) ([]byte, string, error) {
	detail, err := s.Orders.Detail(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	data, err := OrderReportPDF(detail)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("orden_%s.pdf", detail.Order.Number), nil
}

// OrderReportPDF lays out the order, its appointments and its executions.
// Dates are printed in Caracas time.
func OrderReportPDF(detail *models.OrderDetail) ([]byte, error) {
	o := detail.Order
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, tr("Sistema de Gestión Técnica - Orden de Servicio"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, tr(fmt.Sprintf("Generado: %s", timeutil.FormatDate(timeutil.Now()))), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Order information
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, tr("Orden "+o.Number), "1", 1, "L", true, 0, "")

	technician := "Sin asignar"
	if o.TechnicianName != nil {
		technician = *o.TechnicianName
	}
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, tr("Cliente: "+o.ClientName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Técnico: "+technician), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Servicio: "+o.ServiceType), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Prioridad: "+o.Priority), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Estado: "+workflow.BadgeFor(o.Status).Label), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, tr("Solicitada: "+timeutil.FormatDate(o.RequestedAt)), "RB", 1, "L", false, 0, "")
	pdf.MultiCell(190, 6, tr("Dirección: "+o.Address), "LRB", "L", false)
	pdf.MultiCell(190, 6, tr("Descripción: "+o.Description), "LRB", "L", false)
	if o.ImpedimentReason != nil && *o.ImpedimentReason != "" {
		pdf.SetFillColor(255, 200, 200)
		pdf.MultiCell(190, 6, tr("Impedimento: "+*o.ImpedimentReason), "1", "L", true)
	}
	pdf.Ln(5)

	// Appointments
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, "Citas", "1", 1, "L", true, 0, "")
	if len(detail.Appointments) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(190, 7, "Sin citas registradas", "1", 1, "C", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(60, 7, "Fecha", "1", 0, "C", true, 0, "")
		pdf.CellFormat(60, 7, "Estado", "1", 0, "C", true, 0, "")
		pdf.CellFormat(70, 7, "Motivo", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, a := range detail.Appointments {
			reason := ""
			if a.Reason != nil {
				reason = truncate(*a.Reason, 35)
			}
			pdf.CellFormat(60, 6, tr(timeutil.FormatDate(a.ScheduledAt)), "1", 0, "C", false, 0, "")
			pdf.CellFormat(60, 6, tr(workflow.BadgeFor(a.Status).Label), "1", 0, "C", false, 0, "")
			pdf.CellFormat(70, 6, tr(reason), "1", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(5)

	// Executions
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, "Ejecuciones", "1", 1, "L", true, 0, "")
	if len(detail.Executions) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(190, 7, "Sin ejecuciones registradas", "1", 1, "C", false, 0, "")
	}
	for _, e := range detail.Executions {
		ended := "-"
		if e.EndedAt != nil {
			ended = timeutil.FormatDate(*e.EndedAt)
		}
		switch workflow.ExecutionConfirmation(e.Confirmation) {
		case workflow.ExecutionConfirmed:
			pdf.SetFillColor(200, 255, 200)
		case workflow.ExecutionRejected:
			pdf.SetFillColor(255, 200, 200)
		default:
			pdf.SetFillColor(255, 245, 200)
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(190, 7, tr(fmt.Sprintf("%s a %s - %s", timeutil.FormatDate(e.StartedAt), ended, e.Confirmation)), "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		if e.WorkPerformed != "" {
			pdf.MultiCell(190, 6, tr("Trabajo realizado: "+e.WorkPerformed), "LRB", "L", false)
		}
		if e.RejectionReason != nil {
			pdf.MultiCell(190, 6, tr("Motivo de rechazo: "+*e.RejectionReason), "LRB", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
