package main

// Render sample documents and a signed copy without the API:
//   go run ./cmd/renderdemo -out ./out

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sst-backend/document/inspect"
	"sst-backend/document/model"
	"sst-backend/document/render"
	"sst-backend/document/stamp"
)

func main() {
	outDir := flag.String("out", "./out", "output directory for generated PDFs")
	catalogPath := flag.String("catalog", "", "document catalog YAML (defaults to the built-in headers)")
	rows := flag.Int("attendees", 45, "attendee rows in the sample minutes, enough to force pagination")
	flag.Parse()

	catalog, err := render.LoadCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	now := time.Now()

	minutes, err := renderSample(model.KindMinutes, sampleMinutes(*rows), catalog, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render minutes: %v\n", err)
		os.Exit(1)
	}
	report, err := renderSample(model.KindGeneric, sampleReport(), catalog, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render report: %v\n", err)
		os.Exit(1)
	}

	signed, err := stamp.New(stamp.Options{}).Stamp(ctx, minutes, sampleSignature(), stamp.Signer{
		Name:     "Luis Mora",
		Title:    "Aprobado por",
		SignedAt: now,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "stamp minutes: %v\n", err)
		os.Exit(1)
	}

	outputs := map[string][]byte{
		"sample_minutes.pdf":         minutes,
		"sample_minutes-firmado.pdf": signed,
		"sample_pesv.pdf":            report,
	}
	for name, data := range outputs {
		if err := os.WriteFile(filepath.Join(*outDir, name), data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	if err := validate(ctx, minutes, signed); err != nil {
		fmt.Fprintf(os.Stderr, "validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: wrote %d files to %s\n", len(outputs), *outDir)
}

func renderSample(kind model.Kind, fields any, catalog *render.Catalog, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	profile, err := render.Decode(kind, raw, catalog)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	doc, err := render.PDF(&buf, profile, render.Options{Creator: "renderdemo", Now: now})
	if err != nil {
		return nil, err
	}
	fmt.Printf("%s: %d pages\n", kind, doc.PageCount())
	return buf.Bytes(), nil
}

// validate checks that stamping kept the page count and drew on the last page.
func validate(ctx context.Context, original, signed []byte) error {
	before, err := inspect.Bytes(ctx, original)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}
	after, err := inspect.Bytes(ctx, signed)
	if err != nil {
		return fmt.Errorf("read signed: %w", err)
	}
	if before.PageCount() != after.PageCount() {
		return fmt.Errorf("page count changed from %d to %d", before.PageCount(), after.PageCount())
	}
	last := after.Last()
	if last.Images == 0 || !strings.Contains(last.Text, "Luis Mora") {
		return fmt.Errorf("signature block missing from page %d", last.Number)
	}
	return nil
}

func sampleMinutes(rows int) model.Minutes {
	attendees := make([]model.Attendee, 0, rows)
	for i := 1; i <= rows; i++ {
		attendees = append(attendees, model.Attendee{
			Name: fmt.Sprintf("Trabajador %02d", i),
			Role: "Integrante COPASST",
		})
	}
	return model.Minutes{
		Number:      "07",
		Date:        time.Now().Format("2006-01-02"),
		StartTime:   "08:00",
		EndTime:     "09:30",
		Place:       "Sala de juntas, sede principal",
		Attendees:   attendees,
		Objective:   "Revisión mensual de incidentes y seguimiento de compromisos",
		Agenda:      []string{"Verificación de quórum", "Lectura del acta anterior", "Incidentes del mes", "Compromisos"},
		Proceedings: "Se revisaron los incidentes reportados en bodega y patio de maniobras.\nSe acordó reforzar la señalización.",
		Commitments: []model.Commitment{
			{Description: "Señalizar rutas de evacuación de bodega", Responsible: "Ana Ruiz", DueDate: "2024-03-30"},
			{Description: "Inspección de extintores", Responsible: "Luis Mora", DueDate: "2024-04-15"},
		},
		Chair:     model.Signatory{Role: "Presidente", Name: "Ana Ruiz"},
		Secretary: model.Signatory{Role: "Secretario", Name: "Luis Mora"},
	}
}

func sampleReport() model.Report {
	return model.Report{
		Header: model.Header{Title: "Inspección preoperacional de vehículo"},
		Body:   "Se realizó la inspección preoperacional del vehículo asignado antes del inicio de la jornada.",
		Fields: []model.Field{
			{Label: "Placa", Value: "ABC-123"},
			{Label: "Kilometraje", Value: "48210"},
			{Label: "Nombre del conductor", Value: "Carlos Pérez"},
			{Label: "Observaciones", Value: "Sin novedad"},
		},
		Signer:     model.Signatory{Role: "Responsable PESV", Name: "Ana Ruiz"},
		SecondRole: "Conductor",
	}
}

// sampleSignature draws a diagonal stroke on a transparent canvas.
func sampleSignature() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 240, 80))
	ink := color.NRGBA{R: 20, G: 40, B: 120, A: 255}
	for x := 10; x < 230; x++ {
		y := 60 - (x-10)*40/220
		for dy := 0; dy < 3; dy++ {
			img.Set(x, y+dy, ink)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
