package router

import (
	"github.com/yudhapratama/contactbook/internal/application"
	"github.com/yudhapratama/contactbook/internal/container"
	pginfra "github.com/yudhapratama/contactbook/internal/infrastructure/postgres"
	handlers "github.com/yudhapratama/contactbook/internal/interface/http"
	"github.com/yudhapratama/contactbook/internal/router/modules"
)

// InitModules builds services and handlers from the container singletons and
// registers every feature module. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()

	userRepo := pginfra.NewUserRepository(container.GetPGPool())
	contactRepo := pginfra.NewContactRepository(container.GetPGPool())

	// keep the Publisher interface truly nil when rabbitmq never connected,
	// so the mail scheduling short-circuits instead of hitting a nil pointer
	var pub application.Publisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}

	authSvc := application.NewAuthService(
		userRepo,
		container.GetJWT(),
		container.GetUserCache(),
		pub,
		container.GetLogger(),
		cfg.AppName,
		cfg.BaseURL,
		cfg.MailSendEnabled,
	)
	userSvc := application.NewUserService(
		userRepo,
		container.GetUserCache(),
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetLogger(),
	)
	contactSvc := application.NewContactService(
		contactRepo,
		container.GetES(),
		cfg.ESContactsIndex,
		container.GetLogger(),
	)

	authHandler := handlers.NewAuthHandler(authSvc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
	userHandler := handlers.NewUserHandler(userSvc, authSvc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
	contactHandler := handlers.NewContactHandler(contactSvc, container.GetLogger())

	r.Add(modules.NewAuthModule(authHandler, authSvc))
	r.Add(modules.NewUserModule(userHandler, authSvc))
	r.Add(modules.NewContactModule(contactHandler, authSvc))
}
