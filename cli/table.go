package cli

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// shortChecksumLen is the number of checksum characters shown unless the full
// checksum is requested.
const shortChecksumLen = 12

// statusRow is a line of the status table.
type statusRow struct {
	ID       string
	State    string
	Checksum string
}

// renderStatusTable writes rows as aligned columns without borders. Checksums
// are shortened to shortChecksumLen characters unless fullChecksum is true.
func renderStatusTable(rows []statusRow, fullChecksum bool, w io.Writer) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(
			tw.Rendition{
				Borders: tw.BorderNone,
				Symbols: tw.NewSymbols(tw.StyleASCII),
				Settings: tw.Settings{
					Lines: tw.Lines{
						ShowHeaderLine: tw.Off,
						ShowFooterLine: tw.Off,
						ShowTop:        tw.Off,
						ShowBottom:     tw.Off,
					},
					Separators: tw.Separators{
						ShowHeader:     tw.Off,
						ShowFooter:     tw.Off,
						BetweenRows:    tw.Off,
						BetweenColumns: tw.Off,
					},
				},
			},
		)),
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				// Migration IDs and checksums must be copyable as is.
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)

	table.Header([]string{"Migration", "Status", "Checksum"})
	for _, r := range rows {
		sum := r.Checksum
		if !fullChecksum && len(sum) > shortChecksumLen {
			sum = sum[:shortChecksumLen]
		}
		if err := table.Append([]string{r.ID, r.State, sum}); err != nil {
			return err //nolint:wrapcheck // This is wrapped by the caller.
		}
	}

	return table.Render() //nolint:wrapcheck // This is wrapped by the caller.
}
