// Package clearcert renders a one-page audit PDF for a cleared invoice,
// used by the supplemental operator endpoint (SPEC_FULL.md §4.9). It is
// not the taxpayer-facing UBL "graphic representation"; it exists purely
// so an operator can hand a human-readable artifact to an auditor.
package clearcert

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/zatca-gateway/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Render produces a one-page PDF summarizing a cleared invoice record.
func Render(inv entity.Invoice) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).WithRightMargin(15).
		WithTopMargin(15).WithBottomMargin(15).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 10}).
		WithTitle("Clearance Certificate", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(row.New(16).Add(
		col.New(12).Add(
			text.New("CLEARANCE CERTIFICATE", props.Text{
				Style: fontstyle.Bold, Size: 16, Color: colorPrimary, Align: align.Center,
			}),
		),
	))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(fieldRow("Invoice UUID", inv.UUID))
	m.AddRows(fieldRow("Supplier", inv.Company))
	m.AddRows(fieldRow("Cleared At", inv.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	m.AddRows(fieldRow("Invoice Hash (SHA-256)", fmt.Sprintf("%x", inv.Hash)))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(row.New(10).Add(
		col.New(12).Add(
			text.New("This certificate attests that the above invoice passed clearance and was re-signed by the gateway's certificate authority.", props.Text{
				Size: 8, Color: colorGray,
			}),
		),
	))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("clearcert: generate document: %w", err)
	}
	return doc.GetBytes(), nil
}

func fieldRow(label, value string) core.Row {
	return row.New(8).Add(
		col.New(4).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorGray})),
		col.New(8).Add(text.New(value, props.Text{Size: 9})),
	)
}
