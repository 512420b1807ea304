package main

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"

	"energycalc/internal/app/ds"
	"energycalc/internal/app/dsn"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func hashPassword(s string) string {
	h := sha1.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

func main() {
	_ = godotenv.Load()

	db, err := gorm.Open(postgres.Open(dsn.FromEnv()), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database")
	}

	// Каталог бытовых устройств
	devices := []ds.Device{
		{
			Name:        "Холодильник Samsung RB37",
			Category:    "Крупная бытовая техника",
			Power:       150,
			Consumption: 25.5,
			PeakPower:   400,
			Voltage:     "220 В",
			WorkPerDay:  "24 часа",
			EnergyClass: "A++",
		},
		{
			Name:        "Стиральная машина LG F2J3",
			Category:    "Крупная бытовая техника",
			Power:       2100,
			Consumption: 18.0,
			PeakPower:   2400,
			Voltage:     "220 В",
			WorkPerDay:  "1 час",
			EnergyClass: "A+++",
		},
		{
			Name:        "Электрический чайник Bosch TWK",
			Category:    "Мелкая бытовая техника",
			Power:       2200,
			Consumption: 9.9,
			PeakPower:   2200,
			Voltage:     "220 В",
			WorkPerDay:  "15 минут",
			EnergyClass: "B",
		},
		{
			Name:        "Телевизор LG OLED55",
			Category:    "Электроника",
			Power:       120,
			Consumption: 14.4,
			PeakPower:   180,
			Voltage:     "220 В",
			WorkPerDay:  "4 часа",
			EnergyClass: "A",
		},
		{
			Name:        "Кондиционер Mitsubishi MSZ",
			Category:    "Климатическая техника",
			Power:       900,
			Consumption: 81.0,
			PeakPower:   1500,
			Voltage:     "220 В",
			WorkPerDay:  "3 часа",
			EnergyClass: "A++",
		},
		{
			Name:        "Микроволновая печь Panasonic NN",
			Category:    "Мелкая бытовая техника",
			Power:       1000,
			Consumption: 7.5,
			PeakPower:   1400,
			Voltage:     "220 В",
			WorkPerDay:  "15 минут",
			EnergyClass: "B",
		},
		{
			Name:        "Посудомоечная машина Bosch SMS",
			Category:    "Крупная бытовая техника",
			Power:       1800,
			Consumption: 21.6,
			PeakPower:   2400,
			Voltage:     "220 В",
			WorkPerDay:  "1 час",
			EnergyClass: "A++",
		},
		{
			Name:        "Водонагреватель Thermex 80л",
			Category:    "Климатическая техника",
			Power:       2000,
			Consumption: 120.0,
			PeakPower:   2000,
			Voltage:     "220 В",
			WorkPerDay:  "2 часа",
			EnergyClass: "B",
		},
	}

	for i := range devices {
		var existing ds.Device
		err := db.Where("name = ?", devices[i].Name).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			db.Create(&devices[i])
			fmt.Printf("Создано устройство: %s\n", devices[i].Name)
		}
	}

	// Тестовые пользователи
	users := []ds.User{
		{Login: "moderator", Password: hashPassword("moderator123"), FullName: "Модератор Системы", IsModerator: true},
		{Login: "client", Password: hashPassword("client123"), FullName: "Иванов Иван Иванович", IsModerator: false},
	}

	for i := range users {
		var existing ds.User
		err := db.Where("login = ?", users[i].Login).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			db.Create(&users[i])
			fmt.Printf("Создан пользователь: %s\n", users[i].Login)
		}
	}

	fmt.Println("\nЗаполнение данных завершено!")
}
