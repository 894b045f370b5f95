package cli

import (
	"fmt"
	"time"

	"github.com/existflow/taskprox/internal/attachment"
	"github.com/existflow/taskprox/internal/model"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your account and session",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the server",
	Long: `Log in with email and password.

With --remember the session survives restarts; otherwise it lasts until
logout or until the machine's temporary files are cleared.`,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE:  runWhoami,
}

var forgotCmd = &cobra.Command{
	Use:   "forgot",
	Short: "Request a password reset email",
	RunE:  runForgot,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set a new password with a reset token",
	RunE:  runReset,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
	Long: `Without flags the profile is printed. Any flag updates that field and
keeps the others.

Examples:
  taskprox auth profile
  taskprox auth profile --address "Calle Mayor 1" --postal 28013
  taskprox auth profile --image ./me.png`,
	RunE: runProfile,
}

var deleteAccountCmd = &cobra.Command{
	Use:   "delete-account",
	Short: "Delete your account permanently",
	RunE:  runDeleteAccount,
}

var (
	authEmail    string
	authRemember bool
	authToken    string
	authYes      bool

	profileFirst   string
	profileLast    string
	profileAddress string
	profilePostal  string
	profileImage   string
)

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)
	authCmd.AddCommand(forgotCmd)
	authCmd.AddCommand(resetCmd)
	authCmd.AddCommand(profileCmd)
	authCmd.AddCommand(deleteAccountCmd)

	loginCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	loginCmd.Flags().BoolVar(&authRemember, "remember", false, "Keep the session across restarts")
	forgotCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	resetCmd.Flags().StringVar(&authToken, "token", "", "Reset token from the email")
	deleteAccountCmd.Flags().BoolVarP(&authYes, "yes", "y", false, "Do not ask for confirmation")

	for _, c := range []*cobra.Command{registerCmd, profileCmd} {
		c.Flags().StringVar(&profileFirst, "first", "", "First name")
		c.Flags().StringVar(&profileLast, "last", "", "Last name")
		c.Flags().StringVar(&profileAddress, "address", "", "Address")
		c.Flags().StringVar(&profilePostal, "postal", "", "Postal code")
	}
	registerCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	profileCmd.Flags().StringVar(&profileImage, "image", "", "Profile image file")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	p := newPrompter(cmd)
	email, err := p.Ask("Email", firstNonEmpty(authEmail, a.session.RememberedEmail(cmd.Context())))
	if err != nil {
		return err
	}
	password, err := p.Password("Password")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔄 Logging in...")
	user, err := a.svc.Login(cmd.Context(), model.Credentials{
		Email:      email,
		Password:   password,
		RememberMe: authRemember,
	})
	if err != nil {
		return err
	}

	name := email
	if user != nil && user.FullName() != "" {
		name = user.FullName()
	}
	fmt.Fprintf(out, "✅ Logged in as %s\n", name)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := model.Registration{
		FirstName:  profileFirst,
		LastName:   profileLast,
		Address:    profileAddress,
		PostalCode: profilePostal,
		Email:      authEmail,
	}
	p := newPrompter(cmd)
	if err := p.fill(
		field{"First name", &reg.FirstName},
		field{"Last name", &reg.LastName},
		field{"Address", &reg.Address},
		field{"Postal code", &reg.PostalCode},
		field{"Email", &reg.Email},
	); err != nil {
		return err
	}
	if reg.Password, err = p.Password("Password"); err != nil {
		return err
	}
	confirm, err := p.Password("Confirm password")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "🔄 Creating account...")
	msg, err := a.svc.Register(cmd.Context(), reg, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", firstNonEmpty(msg, "Account created, you can now log in"))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.session.LoggedIn() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	if err := a.svc.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	id := a.svc.Identity()
	user, err := a.svc.Profile(cmd.Context())
	if err != nil {
		// the token is still good; show what it carries
		user = a.session.User()
	}
	if user != nil && user.FullName() != "" {
		fmt.Fprintf(out, "%s <%s>\n", user.FullName(), id.Email)
	} else {
		fmt.Fprintln(out, id.Email)
	}

	if exp := a.session.ExpiresAt(); !exp.IsZero() {
		fmt.Fprintf(out, "Session expires %s\n", exp.Local().Format(time.RFC1123))
	}
	if a.session.RememberMe() {
		fmt.Fprintln(out, "Remembered on this machine")
	}
	return nil
}

func runForgot(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	email, err := newPrompter(cmd).Ask("Email", firstNonEmpty(authEmail, a.session.RememberedEmail(cmd.Context())))
	if err != nil {
		return err
	}
	msg, err := a.svc.ForgotPassword(cmd.Context(), email)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "📬 %s\n", firstNonEmpty(msg, "Check your email for the reset link"))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	p := newPrompter(cmd)
	reset := model.PasswordReset{Token: authToken}
	if err := p.fill(field{"Reset token", &reset.Token}); err != nil {
		return err
	}
	if reset.Password, err = p.Password("New password"); err != nil {
		return err
	}
	confirm, err := p.Password("Confirm password")
	if err != nil {
		return err
	}

	msg, err := a.svc.ResetPassword(cmd.Context(), reset, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", firstNonEmpty(msg, "Password updated"))
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.svc.Profile(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	changed := false
	for _, name := range []string{"first", "last", "address", "postal", "image"} {
		changed = changed || cmd.Flags().Changed(name)
	}
	if !changed {
		printProfile(cmd, user)
		return nil
	}

	update := model.ProfileUpdate{
		FirstName:    pick(cmd, "first", profileFirst, user.FirstName),
		LastName:     pick(cmd, "last", profileLast, user.LastName),
		Address:      pick(cmd, "address", profileAddress, user.Address),
		PostalCode:   pick(cmd, "postal", profilePostal, user.PostalCode),
		ProfileImage: user.ProfileImage,
	}
	if profileImage != "" {
		f, err := attachment.Load(profileImage)
		if err != nil {
			return err
		}
		if err := attachment.Validate(f); err != nil {
			return err
		}
		update.ProfileImage = attachment.Encode(f).Data
	}

	updated, err := a.svc.UpdateProfile(cmd.Context(), update)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "✅ Profile updated")
	if updated != nil {
		printProfile(cmd, updated)
	}
	return nil
}

func printProfile(cmd *cobra.Command, u *model.User) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:        %s\n", u.FullName())
	fmt.Fprintf(out, "Email:       %s\n", u.Email)
	fmt.Fprintf(out, "Address:     %s\n", u.Address)
	fmt.Fprintf(out, "Postal code: %s\n", u.PostalCode)
	if u.ProfileImage != "" {
		fmt.Fprintln(out, "Image:       set")
	}
}

func runDeleteAccount(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	if !authYes {
		ok, err := newPrompter(cmd).Confirm("Delete your account and all its data?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	if err := a.svc.DeleteAccount(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Account deleted.")
	return nil
}

// pick returns the flag value when the flag was given, else current
func pick(cmd *cobra.Command, flag, value, current string) string {
	if cmd.Flags().Changed(flag) {
		return value
	}
	return current
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
