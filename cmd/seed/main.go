// Command seed generates demo traffic against a running forgeboard
// instance: it mints certificates, submits and endorses milestones,
// sends tips and places stakes, then prints the resulting leaderboard.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"
)

const defaultTimeout = 10 * time.Second

var categories = []string{
	"solidity_dev", "frontend_dev", "backend_dev", "protocol_designer", "auditor",
}

var milestoneTypes = []string{
	"contribution", "project_shipped", "audit_completed", "exploit_patched", "protocol_launched",
}

type client struct {
	base string
	http *http.Client
}

func (c *client) do(method, path, identity string, payload, out any) error {
	body := []byte("{}")
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if identity != "" {
		req.Header.Set("X-Forge-Identity", identity)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, raw)
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		builders = flag.Int("builders", 10, "Number of builder identities")
		patrons  = flag.Int("patrons", 5, "Number of tipping patrons")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	c := &client{base: *baseURL, http: &http.Client{Timeout: *timeout}}

	var idOut struct {
		ID uint64 `json:"id"`
	}

	// Mint one certificate per builder and attach a milestone.
	certs := make(map[string]uint64, *builders)
	for i := 0; i < *builders; i++ {
		builder := fmt.Sprintf("builder-%02d", i)
		category := categories[rng.Intn(len(categories))]
		if err := c.do(http.MethodPost, "/certificates", builder,
			map[string]any{"category": category}, &idOut); err != nil {
			fatal(err)
		}
		certs[builder] = idOut.ID

		if err := c.do(http.MethodPost, "/milestones", builder, map[string]any{
			"certificate_id":  idOut.ID,
			"type":            milestoneTypes[rng.Intn(len(milestoneTypes))],
			"title":           fmt.Sprintf("demo milestone %d", i),
			"description":     "seeded demo work",
			"proof_reference": fmt.Sprintf("https://example.com/proof/%d", i),
		}, &idOut); err != nil {
			fatal(err)
		}

		// Three distinct endorsements trip the auto-verify threshold.
		for _, peer := range pickPeers(rng, *builders, i, 3) {
			if err := c.do(http.MethodPost,
				fmt.Sprintf("/milestones/%d/endorse", idOut.ID), peer, nil, nil); err != nil {
				fatal(err)
			}
		}
	}

	// Patrons tip and stake on random builders.
	for i := 0; i < *patrons; i++ {
		patron := fmt.Sprintf("patron-%02d", i)
		for j := 0; j < 3; j++ {
			builder := fmt.Sprintf("builder-%02d", rng.Intn(*builders))
			amount := uint64(100 + rng.Intn(2000))
			if err := c.do(http.MethodPost, "/tips", patron,
				map[string]any{"to": builder, "amount": amount}, nil); err != nil {
				fatal(err)
			}
			if err := c.do(http.MethodPost,
				fmt.Sprintf("/certificates/%d/stakes", certs[builder]), patron,
				map[string]any{"amount": amount / 2}, nil); err != nil {
				fatal(err)
			}
		}
	}

	// Print the live leaderboard.
	var entries []struct {
		Rank     int    `json:"rank"`
		Identity string `json:"identity"`
		Points   uint64 `json:"points"`
	}
	if err := c.do(http.MethodGet, "/seasons/current/leaderboard?limit=10", "", nil, &entries); err != nil {
		fatal(err)
	}
	fmt.Println("season leaderboard:")
	for _, e := range entries {
		fmt.Printf("%3d. %-14s %d\n", e.Rank, e.Identity, e.Points)
	}
}

// pickPeers returns n distinct builder identities different from self.
func pickPeers(rng *rand.Rand, builders, self, n int) []string {
	if builders <= n {
		n = builders - 1
	}
	seen := map[int]bool{self: true}
	out := make([]string, 0, n)
	for len(out) < n {
		p := rng.Intn(builders)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, fmt.Sprintf("builder-%02d", p))
	}
	return out
}

func fatal(err error) {
	os.Stderr.WriteString(err.Error() + "\n")
	os.Exit(1)
}
