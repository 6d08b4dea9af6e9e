package devicesim

import (
	"time"

	"github.com/arloliu/go-trio/logger"
	"github.com/arloliu/go-trio/telnet"
)

// DefaultBanner is printed after the negotiation requests on connect.
const DefaultBanner = "Trio Motion Technology MC508 (simulator)"

type config struct {
	banner        string
	prompt        string
	echo          bool
	negotiation   []telnet.Directive
	responseDelay time.Duration
	commitDelay   time.Duration
	axisTypes     map[int]int
	logger        logger.Logger
}

func defaultConfig() *config {
	return &config{
		banner: DefaultBanner,
		prompt: ">>",
		echo:   true,
		negotiation: []telnet.Directive{
			{Command: telnet.DO, Option: telnet.OptEcho},
			{Command: telnet.WILL, Option: telnet.OptSuppressGoAhead},
		},
		commitDelay: 200 * time.Millisecond,
		axisTypes:   map[int]int{},
		logger:      logger.GetLogger(),
	}
}

// Option configures a Server.
type Option func(*config)

// WithBanner sets the banner printed on connect. An empty banner prints nothing.
func WithBanner(banner string) Option {
	return func(c *config) { c.banner = banner }
}

// WithPrompt sets the prompt printed after every reply.
func WithPrompt(prompt string) Option {
	return func(c *config) { c.prompt = prompt }
}

// WithoutEcho disables the echo of received lines.
func WithoutEcho() Option {
	return func(c *config) { c.echo = false }
}

// WithNegotiation replaces the negotiation requests sent on connect.
// Calling it with no directive disables negotiation.
func WithNegotiation(dirs ...telnet.Directive) Option {
	return func(c *config) { c.negotiation = dirs }
}

// WithResponseDelay delays every reply, after the echo, by d.
func WithResponseDelay(d time.Duration) Option {
	return func(c *config) { c.responseDelay = d }
}

// WithCommitDelay sets how long after "!<prog>,M" the flash report arrives.
func WithCommitDelay(d time.Duration) Option {
	return func(c *config) { c.commitDelay = d }
}

// WithAxisType sets the initial ATYPE of an axis.
func WithAxisType(base, atype int) Option {
	return func(c *config) { c.axisTypes[base] = atype }
}

// WithLogger sets the simulator logger.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
