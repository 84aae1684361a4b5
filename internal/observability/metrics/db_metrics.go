package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "sensors_registered",
			Help: "Registered sensors",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM sensors")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "sensors_inactive",
			Help: "Sensors with persisted inactive status",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM sensors WHERE sensor_status = 'inactive'")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "readings_last_day",
			Help: "Readings stored in the trailing 24 hours",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM sensor_data WHERE data_timestamp >= NOW() - INTERVAL '24 hours'")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "users_registered",
			Help: "Registered dashboard users",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM users")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
