// Package report builds the top-selling books report from the exit details.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/emundo/bookstock/internal/api"
)

const (
	ChartSize   = 10
	TopSize     = 5
	OthersLabel = "Otros"
)

// BookSales is one row of the report. BookID is 0 for the Otros bucket.
type BookSales struct {
	BookID  int64   `json:"libro"`
	Name    string  `json:"nombre"`
	Units   int64   `json:"unidades"`
	Percent float64 `json:"porcentaje"`
}

type Stats struct {
	TotalUnits     int64       `json:"total_unidades"`
	DistinctBooks  int         `json:"libros_distintos"`
	MonthlyAverage int64       `json:"promedio_mensual"`
	TopBook        string      `json:"libro_top"`
	Top            []BookSales `json:"top"`
	Rows           []BookSales `json:"detalle"`
	Chart          []BookSales `json:"grafico"`
}

// UnitsSold sums cantidad per book, most sold first (ties by name).
func UnitsSold(details []api.ExitDetail, names map[int64]string) []BookSales {
	// keyed by book id: two books sharing a title stay separate rows
	units := map[int64]int64{}
	for _, d := range details {
		units[d.Libro] += d.Cantidad
	}
	out := make([]BookSales, 0, len(units))
	for id, n := range units {
		name, ok := names[id]
		if !ok || strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Libro %d", id)
		}
		out = append(out, BookSales{BookID: id, Name: name, Units: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Top keeps the first n rows and folds the rest into a single Otros row.
func Top(sales []BookSales, n int) []BookSales {
	if len(sales) <= n {
		return append([]BookSales(nil), sales...)
	}
	out := append([]BookSales(nil), sales[:n]...)
	var rest int64
	for _, s := range sales[n:] {
		rest += s.Units
	}
	return append(out, BookSales{Name: OthersLabel, Units: rest})
}

// Summarize computes the header figures and percentage shares.
func Summarize(sales []BookSales) Stats {
	st := Stats{DistinctBooks: len(sales), TopBook: "-"}
	for _, s := range sales {
		st.TotalUnits += s.Units
	}
	st.MonthlyAverage = int64(math.Round(float64(st.TotalUnits) / 12))
	if len(sales) > 0 {
		st.TopBook = sales[0].Name
	}

	st.Rows = make([]BookSales, len(sales))
	for i, s := range sales {
		s.Percent = share(s.Units, st.TotalUnits)
		st.Rows[i] = s
	}
	st.Top = Top(st.Rows, TopSize)[:min(TopSize, len(st.Rows))]
	st.Chart = Top(st.Rows, ChartSize)
	for i := range st.Chart {
		st.Chart[i].Percent = share(st.Chart[i].Units, st.TotalUnits)
	}
	return st
}

func share(units, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(units)*1000/float64(total)) / 10
}

// Source is what the report reads from.
type Source interface {
	ListExitDetails(ctx context.Context) ([]api.ExitDetail, error)
	BookNames(ctx context.Context) (map[int64]string, error)
}

// Build loads the exit details and book names and summarizes them.
func Build(ctx context.Context, src Source) (Stats, error) {
	details, err := src.ListExitDetails(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("detalle de salidas: %w", err)
	}
	names, err := src.BookNames(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("libros: %w", err)
	}
	return Summarize(UnitsSold(details, names)), nil
}

var printer = message.NewPrinter(language.Spanish)

// Headline is the one-line summary shown above the chart.
func (s Stats) Headline() string {
	if s.TotalUnits == 0 {
		return "Sin ventas registradas"
	}
	return printer.Sprintf("%d unidades vendidas de %d libros (promedio mensual %d). Más vendido: %s",
		s.TotalUnits, s.DistinctBooks, s.MonthlyAverage, s.TopBook)
}

// Label renders one row as "<nombre>: <unidades> (<porcentaje>%)".
func (b BookSales) Label() string {
	return printer.Sprintf("%s: %d (%.1f%%)", b.Name, b.Units, b.Percent)
}
