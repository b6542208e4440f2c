package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/rmc_logger/internal/source"
)

func main() {
	lat := flag.Float64("lat", 48.1173, "starting latitude")
	lon := flag.Float64("lon", 11.516667, "starting longitude")
	n := flag.Int("n", 600, "number of sentences, 0 runs forever")
	voidEvery := flag.Int("void-every", 0, "emit a void fix every N sentences")
	interval := flag.Duration("interval", 0, "delay between sentences, e.g. 1s")
	out := flag.String("out", "", "output file (defaults to stdout)")
	flag.Parse()

	log.Println("starting rmc-logger simulator (mock RMC track)")

	f := os.Stdout
	if *out != "" {
		var err error
		if f, err = os.Create(*out); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		defer f.Close()
	}
	w := bufio.NewWriter(f)
	defer w.Flush()

	track := source.NewMockTrack(*lat, *lon, time.Now())
	track.VoidEvery = *voidEvery

	for i := 0; *n == 0 || i < *n; i++ {
		if _, err := fmt.Fprintf(w, "%s\r\n", track.Next()); err != nil {
			log.Fatalf("write error: %v", err)
		}
		if *interval > 0 {
			w.Flush()
			time.Sleep(*interval)
		}
	}
}
