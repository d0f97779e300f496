package metrics

// Config configures the metrics instruments.
type Config struct {
	ServiceName string
	Environment string
}
