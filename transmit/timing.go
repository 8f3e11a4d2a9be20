/*
NAME
  timing.go

DESCRIPTION
  timing.go provides a Backend wrapper recording how late each tone ends, and
  the Prometheus metrics of the transmitter.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package transmit

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/sstv/codec/sstv"
)

var (
	picturesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sstv_pictures_sent_total",
		Help: "Pictures transmitted completely.",
	}, []string{"mode"})

	pictureErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sstv_picture_errors_total",
		Help: "Pictures abandoned because of a backend error or cancellation.",
	})

	pictureDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sstv_picture_duration_seconds",
		Help:    "Time taken to transmit a picture.",
		Buckets: prometheus.LinearBuckets(30, 15, 8),
	}, []string{"mode"})

	toneLateness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sstv_tone_lateness_seconds",
		Help: "Lateness of tone ends in the last picture.",
	}, []string{"stat"})
)

// timedBackend records the lateness of every tone waited on.
type timedBackend struct {
	sstv.Backend
	late []float64 // Seconds.
}

func (b *timedBackend) WaitUntil(start time.Time, d time.Duration) {
	b.Backend.WaitUntil(start, d)
	b.late = append(b.late, b.Now().Sub(start.Add(d)).Seconds())
}

func (b *timedBackend) reset() { b.late = b.late[:0] }

// timing summarises tone lateness in seconds.
type timing struct {
	Tones  int
	Mean   float64
	StdDev float64
	P99    float64
	Max    float64
}

func (b *timedBackend) timing() timing {
	if len(b.late) == 0 {
		return timing{}
	}
	x := append([]float64(nil), b.late...)
	sort.Float64s(x)
	t := timing{Tones: len(x), Max: x[len(x)-1]}
	t.Mean, t.StdDev = stat.MeanStdDev(x, nil)
	t.P99 = stat.Quantile(0.99, stat.Empirical, x, nil)
	return t
}

func (t timing) observe() {
	toneLateness.WithLabelValues("mean").Set(t.Mean)
	toneLateness.WithLabelValues("p99").Set(t.P99)
	toneLateness.WithLabelValues("max").Set(t.Max)
}
