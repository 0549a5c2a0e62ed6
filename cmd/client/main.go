package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linequery/internal/client"
	"linequery/internal/logger"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:44445", "Server address")
	useTLS := flag.Bool("tls", false, "Connect with TLS")
	insecure := flag.Bool("insecure", true, "Skip certificate verification (self-signed servers)")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-query timeout")
	flag.Parse()

	logger.Setup(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tlsConfig *tls.Config
	if *useTLS {
		tlsConfig = &tls.Config{InsecureSkipVerify: *insecure, MinVersion: tls.VersionTLS12}
	}

	c, err := client.Dial(ctx, *addr, tlsConfig)
	if err != nil {
		logger.Fatal("%v", err)
	}
	defer c.Close()
	fail := func() {
		c.Close()
		os.Exit(1)
	}

	ask := func(q string) bool {
		qctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		res, err := c.Query(qctx, q)
		if err != nil {
			logger.Error("query %q: %v", q, err)
			return false
		}
		fmt.Printf("%s\t%s\t%.3fms\n", q, res.Response, float64(res.RTT.Microseconds())/1000)
		return true
	}

	if flag.NArg() > 0 {
		for _, q := range flag.Args() {
			if !ask(q) {
				fail()
			}
		}
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if !ask(scanner.Text()) {
			fail()
		}
	}
}
