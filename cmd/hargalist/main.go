package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"hargalist/internal"
	"hargalist/internal/config"
	"hargalist/internal/connectors"
	gmailconnector "hargalist/internal/connectors/gmail"
	imapconnector "hargalist/internal/connectors/imap"
	"hargalist/internal/listener"
	"hargalist/internal/llm"
	"hargalist/internal/pipeline"
	"hargalist/internal/storage"
	"hargalist/internal/util"
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

	var client *llm.Client
	if cfg.LLMAPIKey != "" {
		client = llm.NewClient(cfg)
	}
	svc := pipeline.NewService(db, cfg, client)

	cmd := os.Args[1]
	switch cmd {
	case "upload:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "document to register")
		supplier := fs.String("supplier", "", "supplier name hint")
		process := fs.Bool("process", false, "process immediately")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		up, err := svc.RegisterUpload(*file, *supplier)
		must(err)
		fmt.Printf("registered upload %s (%s, %d bytes)\n", up.ID, up.Mime, up.SizeBytes)
		if *process {
			must(svc.ProcessUpload(context.Background(), up.ID))
			printUpload(db, up.ID)
		}
	case "upload:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "upload id")
		batch := fs.Int("batch", 10, "max pending uploads when no --id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) != "" {
			must(svc.ProcessUpload(context.Background(), *id))
			printUpload(db, *id)
			return
		}
		processed, err := svc.ProcessPending(context.Background(), *batch)
		must(err)
		fmt.Printf("processed %d uploads\n", processed)
	case "upload:status":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "upload id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" {
			must(fmt.Errorf("--id is required"))
		}
		printUpload(db, *id)
	case "upload:cancel":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "upload id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" {
			must(fmt.Errorf("--id is required"))
		}
		must(db.RequestUploadCancel(*id))
		fmt.Printf("cancel requested for %s\n", *id)
	case "upload:approve", "upload:reject":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "upload id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*id) == "" {
			must(fmt.Errorf("--id is required"))
		}
		status := internal.ApprovalApproved
		if cmd == "upload:reject" {
			status = internal.ApprovalRejected
		}
		must(db.SetUploadApproval(*id, status))
		fmt.Printf("upload %s marked %s\n", *id, status)
	case "uploads:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		status := fs.String("status", "pending", "upload status filter")
		limit := fs.Int("limit", 50, "max rows")
		_ = fs.Parse(os.Args[2:])
		uploads, err := db.ListUploadsByStatus(internal.UploadStatus(*status), *limit)
		must(err)
		for _, up := range uploads {
			fmt.Printf("%s  %-24s %-10s %3d%%  %s\n", up.ID, up.Filename, up.Status, up.ProgressPct, up.CreatedAt)
		}
		fmt.Printf("%d uploads\n", len(uploads))
	case "uploads:sweep":
		swept, err := svc.SweepStale()
		must(err)
		fmt.Printf("marked %d stale uploads failed\n", swept)
	case "queue:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplierID := fs.Int64("supplierId", 0, "filter by supplier")
		_ = fs.Parse(os.Args[2:])
		var filter *int64
		if *supplierID != 0 {
			filter = supplierID
		}
		entries, err := db.ListPendingUnmatched(filter)
		must(err)
		for _, e := range entries {
			unit := ""
			if e.RawUnit != nil {
				unit = *e.RawUnit
			}
			fmt.Printf("%4d  x%-3d supplier=%-4d %-40s %s\n", e.ID, e.Frequency, e.SupplierID, e.RawName, unit)
		}
		fmt.Printf("%d pending entries\n", len(entries))
	case "queue:assign":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "queue entry id")
		productID := fs.Int64("productId", 0, "product to assign")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 || *productID == 0 {
			must(fmt.Errorf("--id and --productId are required"))
		}
		must(db.AssignUnmatched(*id, *productID))
		fmt.Printf("entry %d assigned to product %d\n", *id, *productID)
	case "queue:ignore":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "queue entry id")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 {
			must(fmt.Errorf("--id is required"))
		}
		must(db.IgnoreUnmatched(*id))
		fmt.Printf("entry %d ignored\n", *id)
	case "prices:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplierID := fs.Int64("supplierId", 0, "filter by supplier")
		_ = fs.Parse(os.Args[2:])
		var filter *int64
		if *supplierID != 0 {
			filter = supplierID
		}
		rows, err := pipeline.BuildExportRows(db, filter)
		must(err)
		for _, r := range rows {
			fmt.Printf("%4d  %-40s %-10s %-8s %12.2f  %s\n", r.ProductID, r.DisplayName, r.Category, r.StdUnit, r.Amount, r.Supplier)
		}
		fmt.Printf("%d active prices\n", len(rows))
	case "prices:history":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		productID := fs.Int64("productId", 0, "product id")
		supplierID := fs.Int64("supplierId", 0, "supplier id")
		_ = fs.Parse(os.Args[2:])
		if *productID == 0 || *supplierID == 0 {
			must(fmt.Errorf("--productId and --supplierId are required"))
		}
		history, err := db.PriceHistory(*productID, *supplierID)
		must(err)
		for _, h := range history {
			from := "-"
			if h.ChangedFrom != nil {
				from = fmt.Sprintf("%.2f", *h.ChangedFrom)
			}
			fmt.Printf("%s  %12s -> %12.2f  (%s)\n", h.CreatedAt, from, h.Price, h.ChangeReason)
		}
		fmt.Printf("%d history entries\n", len(history))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		supplierID := fs.Int64("supplierId", 0, "filter by supplier")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		var filter *int64
		if *supplierID != 0 {
			filter = supplierID
		}
		rows, err := pipeline.BuildExportRows(db, filter)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no active prices to export"))
		}
		must(pipeline.ExportPricesToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.MailListenerFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.MailDir, conn, svc)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d registered=%d skipped=%d\n", *provider, result.Fetched, result.Registered, result.Skipped)
	case "mail:listen":
		s := listener.NewService(db, cfg, svc)
		must(s.Run(context.Background()))
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "document to process")
		supplier := fs.String("supplier", "", "supplier name hint")
		output := fs.String("output", "", "optional xlsx export of the supplier's active prices")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		up, err := svc.RegisterUpload(*input, *supplier)
		must(err)
		must(svc.ProcessUpload(context.Background(), up.ID))
		final, err := db.GetUpload(up.ID)
		must(err)
		if final == nil {
			must(fmt.Errorf("upload %s disappeared", up.ID))
		}
		printRecord(*final)
		if strings.TrimSpace(*output) != "" && final.SupplierID != nil {
			rows, err := pipeline.BuildExportRows(db, util.Int64Ptr(*final.SupplierID))
			must(err)
			must(pipeline.ExportPricesToXLSX(rows, *output))
			fmt.Printf("exported %d rows to %s\n", len(rows), *output)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func printUpload(db *storage.DB, id string) {
	up, err := db.GetUpload(id)
	must(err)
	if up == nil {
		must(fmt.Errorf("upload not found: %s", id))
	}
	printRecord(*up)
}

func printRecord(up internal.UploadRecord) {
	fmt.Printf("upload %s\n", up.ID)
	fmt.Printf("  file:         %s (%s, %d bytes)\n", up.Filename, up.Mime, up.SizeBytes)
	fmt.Printf("  status:       %s (stage=%s, %d%%)\n", up.Status, up.Stage, up.ProgressPct)
	fmt.Printf("  approval:     %s\n", up.ApprovalStatus)
	if up.BestMethod != nil {
		fmt.Printf("  method:       %s (completeness %.2f)\n", *up.BestMethod, up.Completeness)
	}
	if up.SupplierID != nil {
		fmt.Printf("  supplier:     %d\n", *up.SupplierID)
	}
	fmt.Printf("  processing:   %dms, %d tokens, $%.4f\n", up.ProcessingMs, up.TokensUsed, up.CostUSD)
	if up.ErrorMessage != nil {
		fmt.Printf("  error:        %s\n", *up.ErrorMessage)
	}
	for _, e := range up.Errors {
		fmt.Printf("  warn:         %s\n", e)
	}
}

func usage() {
	fmt.Println("usage: hargalist <command>")
	fmt.Println("commands:")
	fmt.Println("  upload:add --file=pricelist.xlsx [--supplier=\"PT Sumber\"] [--process]")
	fmt.Println("  upload:process [--id=...] [--batch=10]")
	fmt.Println("  upload:status --id=...")
	fmt.Println("  upload:cancel --id=...")
	fmt.Println("  upload:approve --id=...  |  upload:reject --id=...")
	fmt.Println("  uploads:list [--status=pending] [--limit=50]")
	fmt.Println("  uploads:sweep")
	fmt.Println("  queue:list [--supplierId=1]")
	fmt.Println("  queue:assign --id=1 --productId=2")
	fmt.Println("  queue:ignore --id=1")
	fmt.Println("  prices:list [--supplierId=1]")
	fmt.Println("  prices:history --productId=1 --supplierId=1")
	fmt.Println("  export:xlsx --out=./out/prices.xlsx [--supplierId=1]")
	fmt.Println("  mail:fetch [--provider=imap] [--label=INBOX] [--max=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  run --input=pricelist.pdf [--supplier=...] [--output=./out/prices.xlsx]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
