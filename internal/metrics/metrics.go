package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
	"github.com/samvad-hq/samvad-request-gateway/pkg/httpclient"
)

// Collector counts gateway outcomes. Bucket counters are fed by status hooks,
// so they also show that classification ran.
type Collector struct {
	responses *prometheus.CounterVec
	failures  *prometheus.CounterVec
	buckets   *prometheus.CounterVec
}

// NewCollector registers the gateway metrics on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_responses_total",
			Help: "Successful gateway responses by status code",
		}, []string{"status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_failures_total",
			Help: "Failed gateway calls by failure kind",
		}, []string{"kind"}),
		buckets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_status_bucket_total",
			Help: "HTTP failures by classification bucket",
		}, []string{"bucket"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.responses, c.failures, c.buckets} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Options returns the gateway options that feed this collector.
func (c *Collector) Options() []gateway.Option {
	opts := []gateway.Option{
		gateway.WithResponseInterceptors(c.countResponse),
		gateway.WithFailureHook(c.countFailure),
	}
	for _, b := range []gateway.Bucket{
		gateway.BucketUnauthorized,
		gateway.BucketForbidden,
		gateway.BucketNotFound,
		gateway.BucketServerError,
		gateway.BucketUnclassified,
	} {
		opts = append(opts, gateway.WithStatusHook(b, c.countBucket))
	}
	return opts
}

func (c *Collector) countResponse(_ context.Context, resp httpclient.Response) (httpclient.Response, error) {
	c.responses.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

func (c *Collector) countFailure(_ context.Context, err gateway.Error) {
	c.failures.WithLabelValues(string(err.Kind)).Inc()
}

func (c *Collector) countBucket(_ context.Context, bucket gateway.Bucket, _ gateway.Error) {
	c.buckets.WithLabelValues(string(bucket)).Inc()
}
