// Package config loads the read API settings.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/configs"
	"github.com/navid-fn/fareradar/internal/models"
)

type Config struct {
	DataDir    string
	ServerPort string
	DebugMode  string
	LogLevel   string

	// KafkaBroker is empty when the live event feed is disabled.
	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	// ClickHouse enables the offer statistics endpoints when the agent
	// mirrors offers there.
	ClickHouse configs.ClickHouseConfig

	// Route is the route served when a request names none. Empty when the
	// search criteria are not configured.
	Route models.RouteKey
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	criteria := models.SearchCriteria{
		Origin:         strings.ToUpper(getEnv("DEPARTURE_AIRPORT", "")),
		Destination:    strings.ToUpper(getEnv("DESTINATION_AIRPORT", "")),
		DepartureStart: getEnv("DEPARTURE_DATE_START", ""),
		DepartureEnd:   getEnv("DEPARTURE_DATE_END", ""),
		ReturnStart:    getEnv("RETURN_DATE_START", ""),
		ReturnEnd:      getEnv("RETURN_DATE_END", ""),
	}
	var route models.RouteKey
	if criteria.Origin != "" && criteria.Destination != "" && criteria.DepartureStart != "" && criteria.ReturnStart != "" {
		route = criteria.RouteKey()
	}

	return &Config{
		DataDir:    getEnv("DATA_DIR", "./data"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DebugMode:  getEnv("DEBUGMODE", "True"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		KafkaBroker:  getEnv("KAFKA_BROKER", ""),
		KafkaTopic:   getEnv("KAFKA_EVENTS_TOPIC", "fareradar_events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "fareradar-api"),
		ClickHouse:   configs.LoadClickHouse(),
		Route:        route,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
