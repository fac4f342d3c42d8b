package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Payment gateway (Razorpay)
	RAZORPAY_KEY_ID     string
	RAZORPAY_KEY_SECRET string
	CURRENCY            string
	// Identity provider (Clerk)
	CLERK_SECRET_KEY     string
	CLERK_WEBHOOK_SECRET string
	CLERK_JWT_PUBLIC_KEY string
	// Redis Configuration
	REDIS_URL      string
	REDIS_PASSWORD string
	REDIS_DB       string
	// Object storage (S3-compatible Spaces)
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	SPACES_CDN_URL    string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	currency := os.Getenv("CURRENCY")
	if currency == "" {
		currency = "INR"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// Razorpay
		RAZORPAY_KEY_ID:     os.Getenv("RAZORPAY_KEY_ID"),
		RAZORPAY_KEY_SECRET: os.Getenv("RAZORPAY_KEY_SECRET"),
		CURRENCY:            currency,
		// Clerk
		CLERK_SECRET_KEY:     os.Getenv("CLERK_SECRET_KEY"),
		CLERK_WEBHOOK_SECRET: os.Getenv("CLERK_WEBHOOK_SECRET"),
		CLERK_JWT_PUBLIC_KEY: os.Getenv("CLERK_JWT_PUBLIC_KEY"),
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       os.Getenv("REDIS_DB"),
		// Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     os.Getenv("SPACES_REGION"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		SPACES_CDN_URL:    os.Getenv("SPACES_CDN_URL"),
	}

	return envVariables, nil
}
