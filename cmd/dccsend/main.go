// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Command dccsend actively dials a waiting DCC receiver and streams a
// file to it, printing progress to stderr.
package main

import (
	"fmt"
	"log"
	"os"

	flags "github.com/jessevdk/go-flags"

	irc "github.com/jaraco/irc"
)

type options struct {
	Host string `short:"H" long:"host" description:"receiver address" required:"true"`
	Port int    `short:"p" long:"port" description:"receiver port" required:"true"`
	File string `short:"f" long:"file" description:"path of the file to send" required:"true"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	f, err := os.Open(opts.File)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Fatal(err)
	}

	conn := irc.NewDCCConn(irc.DCCRaw)
	if err := conn.Connect(opts.Host, opts.Port); err != nil {
		log.Fatal(err)
	}

	fmt.Fprintf(os.Stderr, "sending %s (%d bytes) to %s:%d\n", opts.File, info.Size(), opts.Host, opts.Port)

	if err := irc.DCCSendFile(conn, f, info.Size()); err != nil {
		log.Fatal(err)
	}

	conn.Disconnect("")
	fmt.Fprintln(os.Stderr, "transfer complete")
}
