package core

// RouterConfig contains configuration for one monitored router.
type RouterConfig struct {
	// Host is the router address (host or host:port) of the web management interface.
	Host string `json:"host" yaml:"host"`

	// Username is the web management login.
	Username string `json:"username" yaml:"username"`

	// Password is the web management password.
	Password string `json:"password" yaml:"password"`

	// PollIntervalSec is the interval in seconds between two stats fetches.
	PollIntervalSec int `json:"poll_interval_sec" yaml:"pollIntervalSec"`

	// TimeoutSec bounds every HTTP request made to the router.
	TimeoutSec int `json:"timeout_sec" yaml:"timeoutSec"`

	// CounterBits is the width of the router's byte counters (32 or 64).
	// It drives the wraparound correction of the rate calculator.
	CounterBits int `json:"counter_bits" yaml:"counterBits"`

	// WirelessPrefix is the interface name prefix that marks a wireless interface.
	WirelessPrefix string `json:"wireless_prefix" yaml:"wirelessPrefix"`
}

// Credentials returns the immutable login triple for this router.
func (c RouterConfig) Credentials() Credentials {
	return Credentials{Host: c.Host, Username: c.Username, Password: c.Password}
}

// Credentials identifies a router and the account used to log into it.
type Credentials struct {
	Host     string
	Username string
	Password string
}
