package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/cmd/accountsd/config"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	repo   accounts.RepositoryManager
	tokens accounts.TokenService
	auther *accounts.Auther
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("accountsd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(app); err != nil {
		panic(err)
	}

	if err := WithAccounts(app); err != nil {
		panic(err)
	}

	go func() {
		if err := app.srv.Serve(app.Config().GetServer().GetAddr()); err != nil {
			app.GetLogger("server").Error("server stopped", "error", err)
		}
	}()

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*accounts.Role)(nil))
	persistence.RegisterModel((*accounts.User)(nil))
	persistence.RegisterModel((*accounts.Account)(nil))

	client, err := persistence.New(app.Config().GetPersistence(), db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(accounts.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = accounts.NewRepositoryManager(client.DB())

	return app.repo.Validate()
}

func WithHTTPServer(app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.srv = srv

	return nil
}

func WithAccounts(app *App) error {
	authCfg := app.Config().GetAuth()

	revocations := accounts.NewMemoryRevocationStore()
	tokens := accounts.NewTokenServiceFromConfig(authCfg, revocations, app.GetLogger("tokens"))
	app.tokens = tokens

	hasher := accounts.NewBcryptHasher(authCfg.GetBcryptCost())

	provider := accounts.NewUserProvider(app.repo.Users()).
		WithHasher(hasher).
		WithLogger(app.GetLogger("auth:prv"))

	acl := accounts.DefaultAccessControl().
		WithLogger(app.GetLogger("acl"))

	auther := accounts.NewAuthenticator(provider, app.repo, tokens, acl).
		WithLogger(app.GetLogger("auth"))
	app.auther = auther

	maintenance := accounts.NewMaintenanceSwitch(authCfg.GetMaintenanceMode())

	links := accounts.NewLinkBuilder(authCfg.GetAPIBaseURL(), authCfg.GetConfirmationPath())
	templates := accounts.MailTemplates{
		AppName: app.Config().GetApp().GetName(),
		From:    authCfg.GetMailFrom(),
	}
	notifier := accounts.NewLogNotifier(app.GetLogger("mail"))
	mode := accounts.ParseDeliveryMode(authCfg.GetDeliveryMode())

	signup := accounts.NewSignupHandler(app.repo, tokens, links, templates).
		WithHasher(hasher).
		WithNotifier(notifier, mode).
		WithLogger(app.GetLogger("cmd:signup"))

	confirm := accounts.NewConfirmRegistrationHandler(app.repo, tokens).
		WithLogger(app.GetLogger("cmd:confirm"))

	changePw := accounts.NewChangePasswordHandler(app.repo).
		WithHasher(hasher).
		WithLogger(app.GetLogger("cmd:change-pw"))

	forgotPw := accounts.NewInitializePasswordResetHandler(app.repo, tokens, links, templates).
		WithNotifier(notifier, mode).
		WithLogger(app.GetLogger("cmd:forgot-pw"))

	confirmPw := accounts.NewFinalizePasswordResetHandler(app.repo, tokens, templates).
		WithHasher(hasher).
		WithNotifier(notifier, mode).
		WithLogger(app.GetLogger("cmd:confirm-pw"))

	accountUpsert := accounts.NewUpsertAccountHandler(app.repo).
		WithLogger(app.GetLogger("cmd:account"))

	controller := accounts.NewUserController(
		accounts.WithControllerLogger(app.GetLogger("users:ctrl")),
		accounts.WithControllerRepo(app.repo),
		accounts.WithControllerAuther(auther),
		accounts.WithControllerTokens(tokens),
		accounts.WithControllerMaintenance(maintenance),
		accounts.WithControllerACL(acl),
		accounts.WithControllerCommands(signup, confirm, changePw, forgotPw, confirmPw, accountUpsert),
	)

	accounts.RegisterUserRoutes(app.srv.Router(), controller)

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
