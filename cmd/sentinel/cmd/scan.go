package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/request"
	"github.com/dmitrymomot/sentinel/core/threat"
	"github.com/dmitrymomot/sentinel/internal/bootstrap"
)

var errThreatFound = errors.New("threat detected")

// scanResult is the JSON document printed by scan.
type scanResult struct {
	Method   string           `json:"method"`
	URI      string           `json:"uri"`
	ClientIP string           `json:"client_ip"`
	Threat   bool             `json:"threat"`
	Blocked  bool             `json:"blocked"`
	Status   int              `json:"status,omitempty"`
	Allow    string           `json:"allow,omitempty"`
	Flagged  []eventlog.Type  `json:"flagged"`
	Events   []eventlog.Event `json:"events"`
}

func newScanCommand() *cobra.Command {
	var (
		ip         string
		production bool
		fail       bool
	)

	c := &cobra.Command{
		Use:   "scan [file]",
		Short: "Scan a raw HTTP request and print the threat report as JSON",
		Long: `scan reads a raw HTTP/1.x request from a file or stdin, runs it through
the threat detector and prints the report. "blocked" tells whether the
request would be rejected under the given environment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := bootstrap.Load()
			if err != nil {
				return err
			}

			in := c.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			res, err := scan(in, cfg.Threat, ip, production || cfg.Production(), cfg.Pipeline.MaxBody)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if fail && res.Threat {
				return errThreatFound
			}
			return nil
		},
	}

	c.Flags().StringVar(&ip, "ip", "203.0.113.10", "client address the request is attributed to")
	c.Flags().BoolVar(&production, "production", false, "evaluate blocking as in production")
	c.Flags().BoolVar(&fail, "fail", false, "exit with an error when a threat is found")
	return c
}

func scan(in io.Reader, cfg threat.Config, ip string, production bool, maxBody int64) (scanResult, error) {
	r, err := http.ReadRequest(bufio.NewReader(in))
	if err != nil {
		return scanResult{}, fmt.Errorf("read request: %w", err)
	}
	r.RemoteAddr = net.JoinHostPort(ip, "0")

	req, err := request.FromHTTP(r, request.WithMaxBody(maxBody))
	if err != nil {
		return scanResult{}, err
	}

	policy, err := cfg.Policy(production)
	if err != nil {
		return scanResult{}, err
	}
	rep := threat.New(cfg.Rules()).Scan(req)

	res := scanResult{
		Method:   req.Method,
		URI:      req.URI,
		ClientIP: req.ClientIP,
		Threat:   rep.Threat(),
		Blocked:  rep.Status != 0 || policy.ShouldBlock(rep, req.ClientIP),
		Status:   rep.Status,
		Allow:    rep.Allow,
		Flagged:  rep.Flagged,
		Events:   rep.Events,
	}
	if res.Flagged == nil {
		res.Flagged = []eventlog.Type{}
	}
	if res.Events == nil {
		res.Events = []eventlog.Event{}
	}
	return res, nil
}
