package main

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"oferta/internal"
	"oferta/internal/api"
	"oferta/internal/config"
	"oferta/internal/connectors"
	imapconnector "oferta/internal/connectors/imap"
	"oferta/internal/listener"
	"oferta/internal/pipeline"
	"oferta/internal/schema"
	"oferta/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	imports := pipeline.NewImportService(db, cfg)

	cmd := os.Args[1]
	switch cmd {
	case "fields":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "catalog|norms|historic|registry")
		input := fs.String("input", "", "optional file whose headers are matched")
		inType := fs.String("type", "", "xlsx|html|eml (default: file extension)")
		page := fs.String("html", "", "optional dashboard page whose table header replaces the field list")
		tableID := fs.String("table", "", "table id inside --html")
		_ = fs.Parse(os.Args[2:])
		d := mustDomain(*domain)
		s, err := schema.ForDomain(d)
		must(err)
		if strings.TrimSpace(*page) != "" {
			f, err := os.Open(*page)
			must(err)
			s, err = schema.SchemaFromHTML(s, f, *tableID)
			_ = f.Close()
			must(err)
		}
		if strings.TrimSpace(*input) == "" {
			for _, f := range s.Fields() {
				fmt.Printf("field=%q kind=%s\n", f.Name, f.Kind)
			}
			return
		}
		table, err := pipeline.ReadTableFromInput(*inType, *input)
		must(err)
		bindings := pipeline.BindHeaders(table.Headers, s.Names())
		hm := pipeline.HeaderMap{}
		for _, b := range bindings {
			hm[b.Field] = b.Source
			fmt.Printf("field=%q source=%q strategy=%s\n", b.Field, b.Source, b.Strategy)
		}
		for _, name := range pipeline.Unmatched(s.Names(), hm) {
			fmt.Printf("field=%q unmatched\n", name)
		}
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "catalog|norms|historic|registry (default: detected)")
		input := fs.String("input", "", "input file path")
		inType := fs.String("type", "", "xlsx|html|eml (default: file extension)")
		page := fs.String("html", "", "optional dashboard page whose table header is matched instead of the field list")
		tableID := fs.String("table", "", "table id inside --html")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		var d internal.Domain
		if strings.TrimSpace(*domain) != "" {
			d = mustDomain(*domain)
		}
		if strings.TrimSpace(*page) != "" {
			if d == "" {
				must(fmt.Errorf("--domain is required with --html"))
			}
			s, err := schema.ForDomain(d)
			must(err)
			f, err := os.Open(*page)
			must(err)
			s, err = schema.SchemaFromHTML(s, f, *tableID)
			_ = f.Close()
			must(err)
			must(imports.SetCanonicalHeaders(d, s.Names()))
		}
		report, err := imports.ImportFile(ctx, d, *inType, *input)
		must(err)
		printReport(report)
	case "export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "catalog|norms|historic|registry")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		d := mustDomain(*domain)
		path := *out
		if strings.TrimSpace(path) == "" {
			path = filepath.Join(cfg.OutputDir, string(d)+".xlsx")
		}
		ds, err := imports.Dataset(d)
		must(err)
		must(pipeline.ExportDatasetToXLSX(ds, path))
		fmt.Printf("exported domain=%s rows=%d output=%s\n", d, ds.Len(), path)
	case "clear":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "catalog|norms|historic|registry")
		_ = fs.Parse(os.Args[2:])
		d := mustDomain(*domain)
		n, err := db.CountRecords(string(d))
		must(err)
		must(imports.Clear(d))
		fmt.Printf("cleared domain=%s records=%d\n", d, n)
	case "stats":
		sync := api.NewSyncService(db, cfg, imports)
		today := time.Now()
		for _, d := range internal.Domains {
			ds, err := imports.Dataset(d)
			must(err)
			last, err := sync.LastPull(d)
			must(err)
			pulled := "never"
			if last != nil {
				pulled = *last
			}
			fmt.Printf("domain=%s records=%d max=%d last_pull=%s\n", d, ds.Len(), cfg.MaxRecords, pulled)
			summary := pipeline.Summarize(ds, today)
			for _, bucket := range slices.Sorted(maps.Keys(summary.Buckets)) {
				fmt.Printf("  %s=%d\n", bucket, summary.Buckets[bucket])
			}
		}
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "filter by domain")
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		filter := ""
		if strings.TrimSpace(*domain) != "" {
			filter = string(mustDomain(*domain))
		}
		runs, err := db.ListRuns(filter, *limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("run=%d trace=%s domain=%s source=%q file=%d added=%d duplicates=%d exceeded=%d filtered=%d at=%s\n",
				r.ID, r.TraceID, r.Domain, r.Source, r.Counts.TotalInFile, r.Counts.AddedCount,
				r.Counts.DuplicateCount, r.Counts.ExceededCount, r.Filtered, r.CreatedAt)
		}
	case "api:pull":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "catalog|historic|registry")
		_ = fs.Parse(os.Args[2:])
		d := mustDomain(*domain)
		n, err := api.NewSyncService(db, cfg, imports).Pull(ctx, d)
		must(err)
		fmt.Printf("api pull done domain=%s records=%d\n", d, n)
	case "api:upload":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		domain := fs.String("domain", "", "catalog|norms")
		input := fs.String("input", "", "xlsx to upload (default: local dataset)")
		_ = fs.Parse(os.Args[2:])
		d := mustDomain(*domain)
		sync := api.NewSyncService(db, cfg, imports)
		var res []byte
		if strings.TrimSpace(*input) != "" {
			res, err = sync.UploadFile(ctx, d, *input)
		} else {
			res, err = sync.UploadDataset(ctx, d)
		}
		must(err)
		fmt.Printf("api upload done domain=%s response=%s\n", d, res)
	case "api:history":
		res, err := api.NewSyncService(db, cfg, imports).UploadHistory(ctx)
		must(err)
		fmt.Println(string(res))
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		label := fs.String("label", cfg.MailListenerLabel, "mailbox")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := imapconnector.NewConnector(cfg)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", conn.Provider(), result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "provider of the stored messages")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*messageID) != "" {
			res, err := imports.ProcessByProviderMessageID(ctx, *provider, *messageID)
			must(err)
			fmt.Printf("processed message id=%d imports=%d skipped=%d\n", res.InboxID, len(res.Reports), len(res.Skipped))
			for _, r := range res.Reports {
				printReport(r)
			}
			return
		}
		handled, reports, err := imports.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending messages=%d imports=%d\n", handled, len(reports))
		for _, r := range reports {
			printReport(r)
		}
	case "mail:listen":
		conn, err := imapconnector.NewConnector(cfg)
		must(err)
		must(listener.NewService(db, cfg, imports, conn).Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func printReport(r internal.ImportReport) {
	fmt.Printf("import trace=%s domain=%s source=%q file=%d added=%d duplicates=%d exceeded=%d filtered=%d total=%d\n",
		r.TraceID, r.Domain, r.Source, r.Merge.TotalInFile, r.Merge.AddedCount, r.Merge.DuplicateCount,
		r.Merge.ExceededCount, r.Filtered, r.Merge.TotalInSystem)
	if len(r.Unmatched) > 0 {
		fmt.Printf("  unmatched=%q\n", r.Unmatched)
	}
}

func mustDomain(input string) internal.Domain {
	d, err := internal.ParseDomain(input)
	must(err)
	return d
}

func usage() {
	fmt.Println("usage: oferta <command>")
	fmt.Println("commands:")
	fmt.Println("  fields --domain=historic [--input=file.xlsx] [--type=xlsx|html|eml] [--html=page.html --table=tablaHistorico]")
	fmt.Println("  import [--domain=historic] --input=file.xlsx [--type=xlsx|html|eml] [--html=page.html --table=tablaHistorico]")
	fmt.Println("  export --domain=historic [--out=./out/historic.xlsx]")
	fmt.Println("  clear --domain=historic")
	fmt.Println("  stats")
	fmt.Println("  runs [--domain=historic] [--limit=20]")
	fmt.Println("  api:pull --domain=catalog|historic|registry")
	fmt.Println("  api:upload --domain=catalog|norms [--input=file.xlsx]")
	fmt.Println("  api:history")
	fmt.Println("  mail:fetch [--label=INBOX] [--max=50]")
	fmt.Println("  mail:process [--provider=imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
