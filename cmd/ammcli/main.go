// ammcli — a command-line client for the market maker daemon.
//
// Usage (flags follow the subcommand):
//
//	ammcli create  [-addr URL] -liquidity 100.0 -resolve-at 2026-09-01T00:00:00Z
//	ammcli list    [-addr URL]
//	ammcli get     [-addr URL] -market ID
//	ammcli quote   [-addr URL] -market ID
//	ammcli buy     [-addr URL] -market ID -owner NAME -outcome A -amount 10 -max-cost 6
//	ammcli sell    [-addr URL] -market ID -owner NAME -outcome A -amount 10 -min-proceeds 4
//	ammcli resolve [-addr URL] -market ID
//	ammcli redeem  [-addr URL] -market ID -owner NAME
//
// All quantities are decimal strings; responses are printed as indented JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"lmsr-amm/internal/api"
)

type cli struct {
	http *resty.Client
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "daemon base URL")
	market := fs.String("market", "", "market ID")
	owner := fs.String("owner", "", "trader identifier")
	outcome := fs.String("outcome", "", "outcome, A or B")
	amount := fs.String("amount", "", "share quantity (decimal)")
	maxCost := fs.String("max-cost", "", "buy slippage bound (decimal)")
	minProceeds := fs.String("min-proceeds", "0", "sell slippage bound (decimal)")
	liquidity := fs.String("liquidity", "", "LMSR b parameter (decimal, empty = server default)")
	resolveAt := fs.String("resolve-at", "", "resolution time, RFC 3339")
	fs.Parse(os.Args[2:])

	c := &cli{
		http: resty.New().
			SetBaseURL(*addr).
			SetTimeout(10 * time.Second).
			SetHeader("Content-Type", "application/json"),
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = c.create(*liquidity, *resolveAt)
	case "list":
		err = c.get("/api/markets")
	case "get":
		err = c.get("/api/markets/" + requireFlag(*market, "-market"))
	case "quote":
		err = c.get("/api/markets/" + requireFlag(*market, "-market") + "/quote")
	case "buy":
		err = c.post("/api/markets/"+requireFlag(*market, "-market")+"/buy", api.BuyRequest{
			Owner:   requireFlag(*owner, "-owner"),
			Outcome: requireFlag(*outcome, "-outcome"),
			Amount:  requireFlag(*amount, "-amount"),
			MaxCost: requireFlag(*maxCost, "-max-cost"),
		})
	case "sell":
		err = c.post("/api/markets/"+requireFlag(*market, "-market")+"/sell", api.SellRequest{
			Owner:       requireFlag(*owner, "-owner"),
			Outcome:     requireFlag(*outcome, "-outcome"),
			Amount:      requireFlag(*amount, "-amount"),
			MinProceeds: *minProceeds,
		})
	case "resolve":
		err = c.post("/api/markets/"+requireFlag(*market, "-market")+"/resolve", nil)
	case "redeem":
		err = c.post("/api/markets/"+requireFlag(*market, "-market")+"/redeem", api.RedeemRequest{
			Owner: requireFlag(*owner, "-owner"),
		})
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) create(liquidity, resolveAt string) error {
	at, err := time.Parse(time.RFC3339, requireFlag(resolveAt, "-resolve-at"))
	if err != nil {
		return fmt.Errorf("parse -resolve-at: %w", err)
	}
	return c.post("/api/markets", api.CreateMarketRequest{Liquidity: liquidity, ResolveAt: at})
}

func (c *cli) get(path string) error {
	resp, err := c.http.R().Get(path)
	return c.render(resp, err)
}

func (c *cli) post(path string, body any) error {
	req := c.http.R()
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(path)
	return c.render(resp, err)
}

// render pretty-prints the response body and turns non-2xx statuses into
// errors carrying the daemon's error code.
func (c *cli) render(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		var er api.ErrorResponse
		if json.Unmarshal(resp.Body(), &er) == nil && er.Code != "" {
			return fmt.Errorf("%s: %s (status %d)", er.Code, er.Error, resp.StatusCode())
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}

	var pretty json.RawMessage = resp.Body()
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(resp.String())
		return nil
	}
	fmt.Println(string(out))
	return nil
}

func requireFlag(v, name string) string {
	if v == "" {
		fmt.Fprintf(os.Stderr, "missing required flag %s\n", name)
		os.Exit(2)
	}
	return v
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ammcli {create|list|get|quote|buy|sell|resolve|redeem} [flags]")
}
