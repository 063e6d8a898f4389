package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/wind-stations-etl/internal/config"
	"github.com/couchcryptid/wind-stations-etl/internal/domain"
)

// Writer publishes geocoded stations to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured station topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishStations serializes and publishes all records in a single
// WriteMessages call.
func (w *Writer) PublishStations(ctx context.Context, records []domain.StationRecord) error {
	if len(records) == 0 {
		return nil
	}
	processedAt := domain.Now()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i], processedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", w.writer.Topic, err)
	}
	w.logger.Info("stations published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// StationMessage is the JSON value of a published station.
type StationMessage struct {
	ICAO      string   `json:"icao,omitempty"`
	Station   string   `json:"estacion"`
	Mean      *float64 `json:"viento_promedio"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Altitude  *float64 `json:"altura_m,omitempty"`
	Province  string   `json:"provincia,omitempty"`
	GeoSource string   `json:"geo_source"`
}

// serializeToMessage marshals a StationRecord into a Kafka message keyed by
// ICAO code, or by station name when the code is blank.
func serializeToMessage(r domain.StationRecord, processedAt time.Time) (kafkago.Message, error) {
	icao := strings.TrimSpace(r.ICAO)
	data, err := json.Marshal(StationMessage{
		ICAO:      icao,
		Station:   r.Station,
		Mean:      r.Mean,
		Lat:       r.Lat,
		Lon:       r.Lon,
		Altitude:  r.Altitude,
		Province:  r.Province,
		GeoSource: r.GeoSource,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize station %q: %w", r.Station, err)
	}
	key := icao
	if key == "" {
		key = r.Station
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "provincia", Value: []byte(r.Province)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
