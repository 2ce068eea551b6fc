package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/config"
	reload "github.com/mohammed-shakir/seattle-ev-map/pkg/reload/kafka"
)

func main() {
	config.LoadDotEnv()
	cfg := reload.FromApp(config.FromEnv().Reload)

	dataset := flag.String("dataset", reload.DatasetAll, "stations|neighborhoods|all")
	version := flag.Uint64("version", uint64(time.Now().Unix()), "event version, must increase per dataset")
	topic := flag.String("topic", cfg.Topic, "kafka topic")
	flag.Parse()

	if len(cfg.Brokers) == 0 {
		fmt.Fprintln(os.Stderr, "KAFKA_BROKERS is empty")
		os.Exit(2)
	}

	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Version = sarama.V3_6_0_0
	prod, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kafka producer: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = prod.Close() }()

	ev := reload.ReloadEvent{
		Version: *version,
		Dataset: *dataset,
		TS:      time.Now().UTC(),
		Op:      "reload",
	}
	part, off, err := reload.Publish(prod, *topic, ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish: %v\n", err)
		_ = prod.Close()
		os.Exit(1)
	}
	fmt.Printf("published %s v%d to %s [partition=%d offset=%d]\n", ev.Dataset, ev.Version, *topic, part, off)
}
