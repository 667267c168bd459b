// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Command servermap connects to a server just long enough to print its
// ISUPPORT feature set, then disconnects.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"

	irc "github.com/jaraco/irc"
)

type options struct {
	Server string `short:"s" long:"server" description:"server to connect to" required:"true"`
	Port   int    `short:"p" long:"port" description:"port to connect to" default:"6667"`
	Nick   string `short:"n" long:"nick" description:"nickname to use" default:"servermap"`
	TLS    bool   `long:"tls" description:"use a TLS-wrapped connection"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	conn := irc.NewServerConn(irc.Config{
		Server: opts.Server,
		Port:   opts.Port,
		Nick:   opts.Nick,
		User:   opts.Nick,
		SSL:    opts.TLS,
	})

	conn.Handlers.Add("RPL_WELCOME", func(c *irc.ServerConn, e irc.Event) irc.HandlerResult {
		go report(c)
		return irc.Continue
	})

	if err := conn.Connect(); err != nil {
		log.Fatal(err)
	}
}

func report(conn *irc.ServerConn) {
	// RPL_ISUPPORT can arrive across several lines; give the server a
	// moment to finish before printing what's been collected.
	time.Sleep(2 * time.Second)

	fmt.Printf("server:      %s\n", conn.GetServerName())
	fmt.Printf("network:     %s\n", conn.Features.Network())
	fmt.Printf("casemapping: %s\n", conn.Features.CaseMapping())
	chanModes := conn.Features.ChanModes()
	fmt.Printf("chanmodes:   %s\n", chanModes.String())
	modes, prefixes := conn.Features.Prefixes()
	fmt.Printf("prefixes:    %s / %s\n", modes, prefixes)
	fmt.Printf("nicklen:     %d\n", conn.Features.GetInt("NICKLEN", 0))
	fmt.Printf("features:    %v\n", conn.Features.Names())

	_ = conn.Cmd.Quit("servermap done")
}
