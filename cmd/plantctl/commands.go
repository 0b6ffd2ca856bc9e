package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/plantcare/internal/application/analysis"
	"github.com/bryanwahyu/plantcare/internal/bootstrap"
	"github.com/bryanwahyu/plantcare/internal/config"
	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
	"github.com/bryanwahyu/plantcare/internal/logging"
	"github.com/bryanwahyu/plantcare/internal/middleware"
)

type appOpener func(ctx context.Context, configPath string) (*bootstrap.App, error)

func openApp(ctx context.Context, configPath string) (*bootstrap.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	return bootstrap.Build(ctx, cfg)
}

func newRootCmd(open appOpener) *cobra.Command {
	var (
		configPath string
		app        *bootstrap.App
	)

	root := &cobra.Command{
		Use:           "plantctl",
		Short:         "Track plant health with photo analyses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
	}
	defaultConfig := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "path to config.yaml")

	getApp := func() *bootstrap.App { return app }
	root.AddCommand(newPlantsCmd(getApp), newAnalyzeCmd(getApp))
	return root
}

func newPlantsCmd(app func() *bootstrap.App) *cobra.Command {
	cmd := &cobra.Command{Use: "plants", Short: "Manage plant profiles"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List plants with their latest status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tANALYSES\tLAST STATUS")
			for _, p := range app().Store.List(cmd.Context()) {
				status := "-"
				if last := p.Latest(); last != nil {
					status = statusLine(*last)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Name, len(p.AnalysisHistory), status)
			}
			return tw.Flush()
		},
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a plant profile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app().Store.AddPlant(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Name)
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a plant profile",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app().Store.Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Name)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print a plant profile with its full history as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app().Store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}

	cmd.AddCommand(list, add, rename, show)
	return cmd
}

type analyzeFlags struct {
	plantID   string
	plantName string
	sunlight  string
	watering  string
	notes     string
	lat, lon  float64
	organic   bool
	quiet     bool
	asJSON    bool
}

func newAnalyzeCmd(app func() *bootstrap.App) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze IMAGE",
		Short: "Analyze a plant photo and append the result to its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			form := middleware.AnalyzeForm{
				PlantID:   f.plantID,
				PlantName: f.plantName,
				Sunlight:  f.sunlight,
				Watering:  f.watering,
				Notes:     f.notes,
				Organic:   f.organic,
				MIMEType:  detectImageType(data),
				ImageSize: len(data),
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				form.Latitude, form.Longitude = &f.lat, &f.lon
			}
			if err := form.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			analyzeCmd := analysis.AnalyzeCommand{
				PlantID:   form.PlantID,
				PlantName: form.PlantName,
				Image:     analysis.Image{Data: data, MIMEType: form.MIMEType, URL: "file://" + absPath(args[0])},
				Env:       form.Environment(),
			}
			if !f.quiet && !f.asJSON {
				analyzeCmd.OnFragment = func(s string) { io.WriteString(cmd.ErrOrStderr(), s) }
			}

			res, err := app().Service.RunAnalysis(cmd.Context(), analyzeCmd)
			if analyzeCmd.OnFragment != nil {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil {
				if ai.Classified(err) {
					return fmt.Errorf("%s (%w)", ai.UserMessage(err), err)
				}
				return err
			}
			if f.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printRecord(out, res)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.plantID, "plant", "", "id of an existing plant")
	fl.StringVar(&f.plantName, "name", "", "create a new plant with this name")
	fl.StringVar(&f.sunlight, "sunlight", "", "one of "+strings.Join(plants.SunlightOptions, ", "))
	fl.StringVar(&f.watering, "watering", "", "one of "+strings.Join(plants.WateringOptions, ", "))
	fl.StringVar(&f.notes, "notes", "", "free text growing notes")
	fl.Float64Var(&f.lat, "lat", 0, "latitude of the plant")
	fl.Float64Var(&f.lon, "lon", 0, "longitude of the plant")
	fl.BoolVar(&f.organic, "organic", false, "prefer organic remedies")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "do not echo the streamed response")
	fl.BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("plant", "name")
	return cmd
}

// detectImageType sniffs the file header; the extension is not trusted.
func detectImageType(data []byte) string {
	mt := http.DetectContentType(data)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func statusLine(r plants.AnalysisRecord) string {
	if !r.HasIssues() {
		return fmt.Sprintf("healthy (%s)", r.Date.Format("2006-01-02"))
	}
	return fmt.Sprintf("issues: %s (%s)", issueSummary(r), r.Date.Format("2006-01-02"))
}

func issueSummary(r plants.AnalysisRecord) string {
	var parts []string
	if plants.NamesDisease(r.DiseaseName) {
		parts = append(parts, r.DiseaseName)
	}
	for _, p := range r.PestIdentification {
		parts = append(parts, p.Name)
	}
	for _, d := range r.NutrientDeficiencies {
		parts = append(parts, d.Name+" deficiency")
	}
	return strings.Join(parts, ", ")
}

func printRecord(w io.Writer, res analysis.AnalyzeResult) {
	r := res.Record
	fmt.Fprintf(w, "Plant:      %s (%s)\n", res.Plant.Name, res.Plant.ID)
	fmt.Fprintf(w, "Identified: %s\n", r.PlantName)
	fmt.Fprintf(w, "Status:     %s\n", statusLine(r))
	fmt.Fprintf(w, "Confidence: %d%%\n", r.ConfidenceScore)
	if r.ProgressAssessment != plants.ProgressNA {
		fmt.Fprintf(w, "Progress:   %s\n", r.ProgressAssessment)
		fmt.Fprintf(w, "            %s\n", r.ComparativeAnalysis)
	}
	fmt.Fprintf(w, "\n%s\n", r.Description)
	writeList(w, "Treatment", r.TreatmentSuggestions)
	for _, p := range r.PestIdentification {
		writeList(w, "Pest: "+p.Name, p.Remedy)
	}
	for _, d := range r.NutrientDeficiencies {
		writeList(w, "Deficiency: "+d.Name, d.Remedy)
	}
	writeList(w, "Preventative care", r.PreventativeCareTips)
	writeList(w, "Benefits", r.Benefits)
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}
