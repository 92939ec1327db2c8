package cli

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/models"
	"stockdesk/internal/security"
	"stockdesk/internal/store"
)

// addAccountCommands adds profile, settings and login history commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newProfileCmd(app))
	rootCmd.AddCommand(newSettingsCmd(app))
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newLoginsCmd(app))
}

func newProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit the account profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			p, err := s.GetProfile(cmd.Context(), app.Config.User)
			if apperrors.Is(err, apperrors.ErrDataNotFound) {
				p = &models.UserProfile{UserID: app.Config.User}
			} else if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(p)
			}
			output.Bold("Profile (%s)", p.UserID)
			output.KeyValues([][2]string{
				{"Name", orDash(p.FullName)},
				{"Email", orDash(p.Email)},
				{"Phone", orDash(p.Phone)},
				{"Country", orDash(p.Country)},
				{"Bio", orDash(TruncateString(p.Bio, 60))},
				{"Updated", FormatDateTime(p.UpdatedAt, app.Config.UI.DateFormat)},
			})
			return nil
		},
	})

	var name, email, phone, country, bio string
	set := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Example: `  stockdesk profile set --name "Ada Lovelace" --email ada@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			p, err := s.GetProfile(cmd.Context(), app.Config.User)
			if apperrors.Is(err, apperrors.ErrDataNotFound) {
				p = &models.UserProfile{UserID: app.Config.User}
			} else if err != nil {
				return err
			}

			fields := []struct {
				flag   string
				value  string
				target *string
			}{
				{"name", name, &p.FullName},
				{"email", email, &p.Email},
				{"phone", phone, &p.Phone},
				{"country", country, &p.Country},
				{"bio", bio, &p.Bio},
			}
			for _, f := range fields {
				if !cmd.Flags().Changed(f.flag) {
					continue
				}
				v := security.SanitizeText(f.value)
				if err := security.ValidateText(f.flag, v, security.MaxTextLength); err != nil {
					return err
				}
				*f.target = v
			}
			if err := security.ValidateEmail(p.Email); err != nil {
				return err
			}

			if err := s.SaveProfile(cmd.Context(), p); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(p)
			}
			output.Success("✓ Profile saved")
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "full name")
	set.Flags().StringVar(&email, "email", "", "email address")
	set.Flags().StringVar(&phone, "phone", "", "phone number")
	set.Flags().StringVar(&country, "country", "", "country")
	set.Flags().StringVar(&bio, "bio", "", "short bio")
	cmd.AddCommand(set)

	return cmd
}

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Notification, security and billing settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.settings(cmd)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(st)
			}
			printSettings(output, st)
			return nil
		},
	})

	cmd.AddCommand(newSettingsSetCmd(app))

	cmd.AddCommand(&cobra.Command{
		Use:   "enable-2fa",
		Short: "Start two-factor enrolment",
		Long: `Generate a TOTP secret. Add it to an authenticator app, then confirm
with 'stockdesk settings verify-2fa <code>' to turn two-factor on.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.settings(cmd)
			if err != nil {
				return err
			}
			account := app.Config.User
			if s, err := app.Store(); err == nil {
				if p, err := s.GetProfile(cmd.Context(), app.Config.User); err == nil && p.Email != "" {
					account = p.Email
				}
			}

			enrollment, err := security.EnrollTOTP(account)
			if err != nil {
				return err
			}
			st.Security.TOTPSecret = enrollment.Secret
			st.Security.TwoFactorEnabled = false
			if err := app.saveSettings(cmd, st); err != nil {
				return err
			}
			logger := app.userLogger()
			logger.Info().Msg("Two-factor enrolment started")

			if output.IsJSON() {
				return output.JSON(enrollment)
			}
			output.Bold("Two-factor enrolment")
			output.KeyValues([][2]string{
				{"Secret", enrollment.Secret},
				{"URL", enrollment.URL},
			})
			output.Info("Confirm with: stockdesk settings verify-2fa <code>")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify-2fa <code>",
		Short: "Confirm two-factor enrolment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.settings(cmd)
			if err != nil {
				return err
			}
			if err := security.VerifyTOTP(args[0], st.Security.TOTPSecret, time.Now()); err != nil {
				return err
			}
			st.Security.TwoFactorEnabled = true
			if err := app.saveSettings(cmd, st); err != nil {
				return err
			}
			logger := app.userLogger()
			logger.Info().Msg("Two-factor enabled")

			if output.IsJSON() {
				return output.JSON(map[string]bool{"two_factor_enabled": true})
			}
			output.Success("✓ Two-factor authentication enabled")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable-2fa <code>",
		Short: "Turn two-factor off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.settings(cmd)
			if err != nil {
				return err
			}
			if !st.Security.TwoFactorEnabled {
				return apperrors.Wrap(apperrors.ErrNotConfigured, "two-factor is not enabled")
			}
			if err := security.VerifyTOTP(args[0], st.Security.TOTPSecret, time.Now()); err != nil {
				return err
			}
			st.Security.TwoFactorEnabled = false
			st.Security.TOTPSecret = ""
			if err := app.saveSettings(cmd, st); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"two_factor_enabled": false})
			}
			output.Success("✓ Two-factor authentication disabled")
			return nil
		},
	})

	return cmd
}

func newSettingsSetCmd(app *App) *cobra.Command {
	var emailAlerts, priceAlerts, newsDigest, weeklyReport bool
	var timeout time.Duration
	var plan, card, currency string

	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Change settings",
		Example: `  stockdesk settings set --price-alerts=false --session-timeout 30m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.settings(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("email-alerts") {
				st.Notifications.EmailAlerts = emailAlerts
			}
			if flags.Changed("price-alerts") {
				st.Notifications.PriceAlerts = priceAlerts
			}
			if flags.Changed("news-digest") {
				st.Notifications.NewsDigest = newsDigest
			}
			if flags.Changed("weekly-report") {
				st.Notifications.WeeklyReport = weeklyReport
			}
			if flags.Changed("session-timeout") {
				if timeout < time.Minute {
					return apperrors.NewValidationError("session-timeout", timeout, "must be at least 1m")
				}
				st.Security.SessionTimeout = timeout
			}
			if flags.Changed("plan") {
				st.Billing.Plan = strings.ToLower(strings.TrimSpace(plan))
			}
			if flags.Changed("card-last4") {
				if err := security.ValidateCardLast4(card); err != nil {
					return err
				}
				st.Billing.CardLast4 = card
			}
			if flags.Changed("currency") {
				st.Billing.Currency = strings.ToUpper(strings.TrimSpace(currency))
			}

			if err := app.saveSettings(cmd, st); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(st)
			}
			output.Success("✓ Settings saved")
			return nil
		},
	}

	cmd.Flags().BoolVar(&emailAlerts, "email-alerts", true, "email alerts")
	cmd.Flags().BoolVar(&priceAlerts, "price-alerts", true, "price alerts")
	cmd.Flags().BoolVar(&newsDigest, "news-digest", false, "daily news digest")
	cmd.Flags().BoolVar(&weeklyReport, "weekly-report", false, "weekly portfolio report")
	cmd.Flags().DurationVar(&timeout, "session-timeout", 8*time.Hour, "session timeout")
	cmd.Flags().StringVar(&plan, "plan", "", "subscription plan")
	cmd.Flags().StringVar(&card, "card-last4", "", "last four digits of the billing card")
	cmd.Flags().StringVar(&currency, "currency", "", "billing currency")
	return cmd
}

func (a *App) settings(cmd *cobra.Command) (*models.Settings, error) {
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	return s.GetSettings(cmd.Context(), a.Config.User)
}

func (a *App) saveSettings(cmd *cobra.Command, st *models.Settings) error {
	s, err := a.Store()
	if err != nil {
		return err
	}
	return s.SaveSettings(cmd.Context(), st)
}

func printSettings(output *Output, st *models.Settings) {
	output.Bold("Notifications")
	output.KeyValues([][2]string{
		{"Email Alerts", YesNo(st.Notifications.EmailAlerts)},
		{"Price Alerts", YesNo(st.Notifications.PriceAlerts)},
		{"News Digest", YesNo(st.Notifications.NewsDigest)},
		{"Weekly Report", YesNo(st.Notifications.WeeklyReport)},
	})
	output.Println()

	output.Bold("Security")
	twoFactor := YesNo(st.Security.TwoFactorEnabled)
	if !st.Security.TwoFactorEnabled && st.Security.TOTPSecret != "" {
		twoFactor = "pending verification"
	}
	output.KeyValues([][2]string{
		{"Two-Factor", twoFactor},
		{"Session Timeout", FormatDuration(st.Security.SessionTimeout)},
	})
	output.Println()

	output.Bold("Billing")
	card := "-"
	if st.Billing.CardLast4 != "" {
		card = "**** " + st.Billing.CardLast4
	}
	output.KeyValues([][2]string{
		{"Plan", st.Billing.Plan},
		{"Card", card},
		{"Currency", st.Billing.Currency},
	})
}

func newLoginCmd(app *App) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Record a sign-in, checking the two-factor code when enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.settings(cmd)
			if err != nil {
				return err
			}

			var verifyErr error
			if st.Security.TwoFactorEnabled {
				verifyErr = security.VerifyTOTP(code, st.Security.TOTPSecret, time.Now())
			}

			s, err := app.Store()
			if err != nil {
				return err
			}
			record := models.LoginRecord{
				UserID:  app.Config.User,
				Device:  loginDevice(),
				Success: verifyErr == nil,
			}
			if err := s.RecordLogin(cmd.Context(), &record); err != nil {
				return err
			}

			logger := app.userLogger()
			if verifyErr != nil {
				logger.Warn().Str("device", record.Device).Msg("Login rejected")
				return verifyErr
			}
			logger.Info().Str("device", record.Device).Msg("Login recorded")

			if output.IsJSON() {
				return output.JSON(record)
			}
			output.Success("✓ Signed in as %s", app.Config.User)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "two-factor code")
	return cmd
}

func loginDevice() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return "cli/" + runtime.GOOS + "@" + host
}

func newLoginsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logins",
		Short: "Show login history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = store.DefaultLoginLimit
			}
			logins, err := s.ListLogins(cmd.Context(), app.Config.User, limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(logins)
			}
			if len(logins) == 0 {
				output.Dim("No logins recorded")
				return nil
			}
			table := NewTable(output, "TIME", "DEVICE", "LOCATION", "RESULT")
			for _, l := range logins {
				result := output.Green("ok")
				if !l.Success {
					result = output.Red("failed")
				}
				table.AddRow(FormatDateTime(l.Timestamp, app.Config.UI.DateFormat), l.Device, orDash(l.Location), result)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultLoginLimit, "number of records")
	return cmd
}
