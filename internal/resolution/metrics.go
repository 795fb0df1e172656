package resolution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_resolutions_total",
		Help: "Successful resolution mutations by kind",
	},
	[]string{"kind"},
)
