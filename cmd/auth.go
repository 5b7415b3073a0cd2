package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/server"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges a username and password for a session and persists it for later commands.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	username, err := r.prompt("Username", cmd.String("username"))
	if err != nil {
		return err
	}
	password, err := r.prompt("Password", cmd.String("password"))
	if err != nil {
		return err
	}

	app, done, err := r.open(ctx, false, nil)
	if err != nil {
		return err
	}
	defer done()

	r.logger.Debug("logging in", "username", username)
	return app.Session.Login(ctx, models.Credentials{Username: username, Password: password})
}

// AuthSignup registers an account. It does not log in.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	username, err := r.prompt("Username", cmd.String("username"))
	if err != nil {
		return err
	}
	password, confirm, err := r.passwords(cmd)
	if err != nil {
		return err
	}

	app, done, err := r.open(ctx, false, nil)
	if err != nil {
		return err
	}
	defer done()

	_, err = app.Session.Signup(ctx, models.Registration{
		Username:       username,
		Password:       password,
		PasswordRepeat: confirm,
		Email:          cmd.String("email"),
		FullName:       cmd.String("name"),
	})
	return err
}

// AuthLogout ends the session and forgets the persisted credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	app, done, err := r.authed(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	return app.Session.Logout(ctx)
}

// AuthStatus reports the restored session's user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	app, done, err := r.open(ctx, false, nil)
	if err != nil {
		return err
	}
	defer done()

	state := app.Session.State()
	if cmd.Bool("json") {
		return r.writeJSON(state, true)
	}

	if !state.Authenticated || state.User == nil {
		return r.writePlain("✗ Not logged in\n")
	}

	user := state.User
	r.writePlain("✓ Logged in as %s\n", user.DisplayName())
	r.writePlain("Username: %s\n", user.Username)
	if user.Email != "" {
		r.writePlain("Email: %s (%s)\n", user.Email, user.EmailVerificationStatus)
	}
	return nil
}

// AuthUpdate changes profile fields. Only the flags given are sent.
func (r *Runner) AuthUpdate(ctx context.Context, cmd *cli.Command) error {
	app, done, err := r.authed(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	return app.Session.UpdateUser(ctx, models.ProfileUpdate{
		FullName:       cmd.String("name"),
		Email:          cmd.String("email"),
		Password:       cmd.String("password"),
		PasswordRepeat: cmd.String("confirm"),
	})
}

// AuthVerifyEmail asks the backend to send a verification email to the account address.
func (r *Runner) AuthVerifyEmail(ctx context.Context, cmd *cli.Command) error {
	app, done, err := r.authed(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	return app.Session.VerifyEmail(ctx)
}

// AuthConfirmEmail redeems a verification token. No session is required.
func (r *Runner) AuthConfirmEmail(ctx context.Context, cmd *cli.Command) error {
	token := cmd.StringArg("token")
	if token == "" {
		return fmt.Errorf("%w: token", shared.ErrMissingArgument)
	}

	app, done, err := r.open(ctx, false, nil)
	if err != nil {
		return err
	}
	defer done()

	return app.Session.ConfirmEmail(ctx, token)
}

// AuthForgotPassword emails a reset link.
func (r *Runner) AuthForgotPassword(ctx context.Context, cmd *cli.Command) error {
	email, err := r.prompt("Email", cmd.String("email"))
	if err != nil {
		return err
	}

	app, done, err := r.open(ctx, false, nil)
	if err != nil {
		return err
	}
	defer done()

	return app.Session.SendResetPasswordEmail(ctx, email)
}

// AuthResetPassword sets a new password with a reset token.
func (r *Runner) AuthResetPassword(ctx context.Context, cmd *cli.Command) error {
	token := cmd.StringArg("token")
	if token == "" {
		return fmt.Errorf("%w: token", shared.ErrMissingArgument)
	}
	return r.resetPassword(ctx, cmd, token)
}

// AuthAwaitLink serves the link server until an emailed link is opened, then confirms the email or resets the
// password with the token it carried.
func (r *Runner) AuthAwaitLink(ctx context.Context, cmd *cli.Command) error {
	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))

	waitCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	r.writePlain("Waiting for a link on http://%s (timeout %s)\n", addr, cmd.Duration("timeout"))

	result, err := server.Await(waitCtx, addr, r.logger)
	if err != nil {
		return err
	}
	if err := result.Error(); err != nil {
		return err
	}

	r.logger.Info("link received", "kind", result.Kind)

	switch result.Kind {
	case server.LinkVerifyEmail:
		app, done, err := r.open(ctx, false, nil)
		if err != nil {
			return err
		}
		defer done()
		return app.Session.ConfirmEmail(ctx, result.Token)
	case server.LinkResetPassword:
		return r.resetPassword(ctx, cmd, result.Token)
	default:
		return fmt.Errorf("%w: link kind %q", shared.ErrInvalidArgument, result.Kind)
	}
}

func (r *Runner) resetPassword(ctx context.Context, cmd *cli.Command, token string) error {
	password, confirm, err := r.passwords(cmd)
	if err != nil {
		return err
	}

	app, done, err := r.open(ctx, false, nil)
	if err != nil {
		return err
	}
	defer done()

	return app.Session.ResetPassword(ctx, token, models.PasswordReset{Password: password, PasswordRepeat: confirm})
}

// passwords reads --password and --confirm, prompting for each one missing.
func (r *Runner) passwords(cmd *cli.Command) (string, string, error) {
	password, err := r.prompt("Password", cmd.String("password"))
	if err != nil {
		return "", "", err
	}
	confirm, err := r.prompt("Confirm password", cmd.String("confirm"))
	if err != nil {
		return "", "", err
	}
	return password, confirm, nil
}
