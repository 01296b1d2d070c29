package main

import (
	"flag"
	"log"
	"log/slog"

	"vatbill/impl/auth"
	"vatbill/impl/core"
	"vatbill/impl/invoices"
	"vatbill/internal/config"
	"vatbill/internal/database"
	"vatbill/internal/http-server/api"
	"vatbill/internal/notify"
	"vatbill/internal/stripeclient"
	"vatbill/internal/vat"
	"vatbill/lib/logger"
	"vatbill/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.Setup(conf.Env, *logPath)
	lg.Info("starting vatbill",
		slog.String("config", *configPath),
		slog.String("env", conf.Env))

	mongo := database.NewMongoClient(conf)
	if mongo == nil {
		log.Fatal("mongo is the document store and must be enabled in config")
	}

	resolver, err := vat.NewResolver(mongo, conf.Vat.DefaultRate, lg)
	if err != nil {
		log.Fatal("vat resolver: ", err)
	}

	invoiceService := invoices.New(mongo, resolver, conf.Vat.DefaultCountry, lg)
	authService := auth.New(mongo)
	stripeClient := stripeclient.New(conf, lg)

	handler := core.New(invoiceService, authService, stripeClient, lg)
	if mailer := notify.NewMailer(conf, lg); mailer != nil {
		handler.SetMailer(mailer)
	}
	if tg := notify.NewTelegram(conf, lg); tg != nil {
		handler.SetChannel(tg)
	}

	if err = api.New(conf, lg, handler); err != nil {
		lg.Error("api server stopped", sl.Err(err))
	}
}
