package main

import (
	"context"

	"energycalc/internal/pkg"

	"github.com/sirupsen/logrus"
)

// @title Energy Consumption Calculator API
// @version 1.0
// @description Сервис заявок на расчет энергопотребления бытовых устройств

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logrus.Println("App start")

	app, err := pkg.NewApp(context.Background())
	if err != nil {
		logrus.Fatal("App init failed: ", err)
	}

	app.RunApp()
	logrus.Println("App terminated")
}
