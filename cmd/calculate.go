package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"skontokit/internal/config"
	"skontokit/internal/extraction"
	"skontokit/internal/logger"
	"skontokit/internal/skonto"
	"skontokit/pkg/models"
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate early-payment discount terms for an invoice",
	Long: `Build a discount calculation from the given invoice terms and print the
resulting state as JSON: final payable amount, savings, percentage,
remaining days and edge-case classification.

The --set-* flags replay edits on top of the initial terms, the same way
an interactive editor would: changing the discounted amount recalculates
the percentage, changing the full amount recalculates the discounted
amount from the unchanged percentage, and changing the due date
recalculates the remaining days.`,
	Example: `  # 3% Skonto on 100.00 EUR, due in 14 days
  skonto calculate --full 100.00 --percentage 3 --due 2026-09-12

  # Edit the discounted amount afterwards; the percentage follows
  skonto calculate --full 100.00 --percentage 3 --due 2026-09-12 --set-discounted 90.00

  # Cash-only invoices start out with the discount not applied
  skonto calculate --full 250.00 --percentage 2 --due 2026-09-12 --payment-method cash`,
	Args: cobra.NoArgs,
	RunE: runCalculate,
}

// termsOutput is the JSON shape shared by the calculate and extract commands.
type termsOutput struct {
	FullAmount       string `json:"full_amount"`
	DiscountedAmount string `json:"discounted_amount"`
	FinalAmount      string `json:"final_amount"`
	Savings          string `json:"savings"`
	Currency         string `json:"currency"`
	Percentage       string `json:"percentage"`
	DueDate          string `json:"due_date"`
	RemainingDays    int    `json:"remaining_days"`
	PaymentMethod    string `json:"payment_method"`
	EdgeCase         string `json:"edge_case"`
	IsApplied        bool   `json:"is_applied"`
}

// validationOutput reports why the last edit was rejected.
type validationOutput struct {
	Field      string `json:"field"`
	MessageKey string `json:"message_key"`
	MaxAmount  string `json:"max_amount,omitempty"`
}

type calculateOutput struct {
	Terms      termsOutput       `json:"terms"`
	Validation *validationOutput `json:"validation,omitempty"`
}

func init() {
	rootCmd.AddCommand(calculateCmd)

	calculateCmd.Flags().String("full", "", "Full invoice amount, e.g. 100.00 (required)")
	calculateCmd.Flags().String("discounted", "", "Discounted amount; derived from --percentage when omitted")
	calculateCmd.Flags().Float64("percentage", 0, "Discount percentage, e.g. 3")
	calculateCmd.Flags().String("due", "", "Discount due date as YYYY-MM-DD (required)")
	calculateCmd.Flags().String("payment-method", "", "Payment method named on the invoice (e.g. cash)")
	calculateCmd.Flags().String("currency", "", "ISO currency code (default from SKONTO_DEFAULT_CURRENCY)")
	calculateCmd.Flags().String("set-full", "", "Replay: set the full amount after construction")
	calculateCmd.Flags().String("set-discounted", "", "Replay: set the discounted amount after construction")
	calculateCmd.Flags().String("set-due", "", "Replay: set the due date after construction (YYYY-MM-DD)")
	calculateCmd.Flags().Bool("toggle", false, "Replay: toggle whether the discount is applied")
	calculateCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")

	_ = calculateCmd.MarkFlagRequired("full")
	_ = calculateCmd.MarkFlagRequired("due")
}

func runCalculate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("calculate")

	fullStr, _ := cmd.Flags().GetString("full")
	discountedStr, _ := cmd.Flags().GetString("discounted")
	percentage, _ := cmd.Flags().GetFloat64("percentage")
	dueStr, _ := cmd.Flags().GetString("due")
	method, _ := cmd.Flags().GetString("payment-method")
	currency, _ := cmd.Flags().GetString("currency")
	outputPath, _ := cmd.Flags().GetString("output")

	engine, err := buildEngine(fullStr, discountedStr, percentage, dueStr, method, currency, log)
	if err != nil {
		return err
	}

	if s, _ := cmd.Flags().GetString("set-full"); s != "" {
		if err := engine.SetFullAmount(s); err != nil {
			log.Warn().Err(err).Msg("Full amount edit rejected")
		}
	}
	if s, _ := cmd.Flags().GetString("set-discounted"); s != "" {
		if err := engine.SetDiscountedAmount(s); err != nil {
			log.Warn().Err(err).Msg("Discounted amount edit rejected")
		}
	}
	if s, _ := cmd.Flags().GetString("set-due"); s != "" {
		due, err := time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("invalid --set-due date %q, expected YYYY-MM-DD: %w", s, err)
		}
		engine.SetDueDate(due)
	}
	if toggle, _ := cmd.Flags().GetBool("toggle"); toggle {
		engine.ToggleApplied()
	}

	output := calculateOutput{
		Terms:      convertTerms(engine.Terms()),
		Validation: convertValidation(engine.Validation()),
	}
	return outputJSON(output, outputPath, log)
}

// buildEngine constructs a discount engine from command-line terms, honoring
// the configured amount ceiling and default currency.
func buildEngine(fullStr, discountedStr string, percentage float64, dueStr, method, currency string, log zerolog.Logger) (*skonto.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if currency == "" {
		currency = cfg.SkontoCurrency
	}

	fullCents, err := extraction.ParseAmountCents(fullStr)
	if err != nil {
		return nil, fmt.Errorf("invalid --full amount %q: %w", fullStr, err)
	}
	var discountedCents int64
	if discountedStr != "" {
		discountedCents, err = extraction.ParseAmountCents(discountedStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --discounted amount %q: %w", discountedStr, err)
		}
	} else {
		discountedCents = fullCents
	}

	due, err := time.Parse("2006-01-02", dueStr)
	if err != nil {
		return nil, fmt.Errorf("invalid --due date %q, expected YYYY-MM-DD: %w", dueStr, err)
	}

	maxFull, err := cfg.MaxFullAmount()
	if err != nil {
		return nil, fmt.Errorf("invalid SKONTO_MAX_FULL_AMOUNT: %w", err)
	}

	line := models.DiscountLine{
		FullAmountCents:       fullCents,
		DiscountedAmountCents: discountedCents,
		Currency:              currency,
		Percentage:            percentage,
		DueDate:               due,
		RemainingDays:         daysUntil(due),
		PaymentMethod:         method,
	}

	engine, err := skonto.NewEngine(line, skonto.WithMaxFullAmount(maxFull))
	if err != nil {
		log.Error().Err(err).Msg("Failed to construct discount engine")
		return nil, fmt.Errorf("failed to construct discount engine: %w", err)
	}
	return engine, nil
}

// daysUntil is the whole-day difference from today (UTC) to the given date.
func daysUntil(due time.Time) int {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	dueDay := due.UTC().Truncate(24 * time.Hour)
	return int(dueDay.Sub(today).Hours() / 24)
}

func convertTerms(t skonto.Terms) termsOutput {
	return termsOutput{
		FullAmount:       t.FullAmount.Format(),
		DiscountedAmount: t.DiscountedAmount.Format(),
		FinalAmount:      t.FinalAmount().Format(),
		Savings:          t.Savings().Format(),
		Currency:         t.FullAmount.Currency(),
		Percentage:       t.Percentage.StringFixed(2),
		DueDate:          t.DueDate.Format("2006-01-02"),
		RemainingDays:    t.RemainingDays,
		PaymentMethod:    t.PaymentMethod.String(),
		EdgeCase:         t.EdgeCase.String(),
		IsApplied:        t.IsApplied,
	}
}

func convertValidation(v *skonto.Validation) *validationOutput {
	if v == nil {
		return nil
	}
	out := &validationOutput{
		Field:      v.Field,
		MessageKey: v.Key,
	}
	if v.Max.Currency() != "" {
		out.MaxAmount = v.Max.Format()
	}
	return out
}

// outputJSON pretty-prints v to the output path, or stdout when none is set.
func outputJSON(v interface{}, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal output to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(jsonData)).
			Msg("Results written to file")
		return nil
	}

	if _, err := os.Stdout.Write(jsonData); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Println()
	return nil
}
