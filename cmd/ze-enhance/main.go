// ze-enhance augments bibliographic items with metadata from Google Books
// (keyed by ISBN) or OpenAlex (keyed by DOI).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/sethgrid/pester"

	zoteroenhancer "github.com/bzuer/zoteroEhancer"
	"github.com/bzuer/zoteroEhancer/config"
	"github.com/bzuer/zoteroEhancer/enrich"
	"github.com/bzuer/zoteroEhancer/fetch"
	"github.com/bzuer/zoteroEhancer/record"
	"github.com/bzuer/zoteroEhancer/snapshot"
)

var docs = strings.TrimLeft(`
# ze-enhance - enrich bibliographic items

Reads a JSON array of items, looks each one up at the configured source and
writes the updated array. Existing field values are never overwritten; tags
and note lines are only added when missing, so repeated runs are idempotent.

## sources

books    Google Books, keyed by ISBN; items without an ISBN field are
         scanned for one in their note, url and DOI fields
works    OpenAlex, keyed by DOI

## usage

$ ze-enhance -s books < items.json > enriched.json
$ ze-enhance -s works -m you@example.com < items.json > enriched.json

The summary goes to stderr, the updated items to stdout.

## flags

`, "\n")

var (
	source      = flag.String("s", "books", "metadata source (books, works)")
	configPath  = flag.String("c", config.Path(), "path to the config file")
	batchSize   = flag.Int("b", 0, "batch size, overrides the config when positive")
	apiKey      = flag.String("k", "", "Google Books API key, overrides the config")
	email       = flag.String("m", "", "contact email for the OpenAlex polite pool, overrides the config")
	noSnapshot  = flag.Bool("S", false, "do not write raw payload snapshots")
	showVersion = flag.Bool("version", false, "show version")
)

func main() {
	flag.Usage = func() {
		io.WriteString(os.Stderr, docs)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Println(zoteroenhancer.Version)
		os.Exit(0)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *apiKey != "" {
		cfg.APIKey = *apiKey
	}
	if *email != "" {
		cfg.ContactEmail = *email
	}
	var mems []*record.MemItem
	if err := json.NewDecoder(bufio.NewReader(os.Stdin)).Decode(&mems); err != nil {
		log.Fatalf("reading items: %v", err)
	}
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = cfg.MaxRetries
	client.RetryOnHTTP429 = true
	client.Timeout = cfg.HTTPTimeout()
	ua := fmt.Sprintf("%s/%s", zoteroenhancer.AppName, zoteroenhancer.Version)
	var src enrich.Source
	switch *source {
	case "books":
		src = &fetch.GoogleBooks{
			Client:    client,
			Endpoint:  cfg.GoogleBooksEndpoint,
			APIKey:    cfg.APIKey,
			UserAgent: ua,
		}
	case "works":
		src = &fetch.OpenAlex{
			Client:       client,
			Endpoint:     cfg.OpenAlexEndpoint,
			ContactEmail: cfg.ContactEmail,
			UserAgent:    ua,
		}
	default:
		log.Fatalf("unknown source: %s", *source)
	}
	e := &enrich.Enricher{Source: src, BatchSize: cfg.BatchSize}
	if !*noSnapshot {
		w := snapshot.NewWriter(cfg.SnapshotDir)
		defer w.Close()
		e.Sink = w
	}
	items := make([]record.Item, len(mems))
	for i, m := range mems {
		items[i] = m
	}
	result, err := e.Run(context.Background(), items)
	if err != nil {
		log.Fatal(err)
	}
	bw := bufio.NewWriter(os.Stdout)
	defer bw.Flush()
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mems); err != nil {
		log.Fatalf("writing items: %v", err)
	}
	fmt.Fprintln(os.Stderr, result.Summary())
}
