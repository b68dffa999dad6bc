package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"bookself/internal/app"
	"bookself/internal/cart"
	"bookself/internal/catalog"
	"bookself/internal/checkout"
	"bookself/internal/config"
	"bookself/internal/data"
	"bookself/internal/order"
	"bookself/internal/report"
	"bookself/internal/storage"
	"bookself/internal/wishlist"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const usage = `usage: bookself <command> [flags] [args]

commands:
  catalog     list products (-category -sub -q -bucket -sort -page -per-page)
  shelves     list subcategories with product counts
  product     show one product and related titles: product <id>
  cart        show | add <id> [qty] | set <id> <qty> | remove <id> | clear
  wishlist    show | add <id> | remove <id> | toggle <id>
  checkout    place an order from the cart (-email -password and customer flags)
  orders      list orders (-user -status -from -to)
  order       show one order: order <id>
  status      set an order status: status <id> <status> [-note -by]
  cancel      cancel an order: cancel <id>
  report      revenue and status summary
  seed        store deterministic demo orders (-orders -batch)
  watch       print change broadcasts until interrupted (-collection); other
              processes are only seen on the redis backend or with REDIS_URL
`

func main() {
	if err := config.LoadDotenv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.String("backend", cfg.Backend), zap.Error(err))
	}
	defer a.Close()

	if err := run(ctx, a, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	var zcfg zap.Config
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	switch cmd {
	case "catalog":
		return runCatalog(a, args)
	case "shelves":
		return printShelves(os.Stdout, a.Catalog.Shelves())
	case "product":
		return runProduct(a, args)
	case "cart":
		return runCart(ctx, a, args)
	case "wishlist":
		return runWishlist(ctx, a, args)
	case "checkout":
		return runCheckout(ctx, a, args)
	case "orders":
		return runOrders(ctx, a, args)
	case "order":
		return runOrder(ctx, a, args)
	case "status":
		return runStatus(ctx, a, args)
	case "cancel":
		return runCancel(ctx, a, args)
	case "report":
		rows, err := report.Run(ctx, a.Orders, time.Now())
		if err != nil {
			return err
		}
		return report.Render(os.Stdout, rows)
	case "seed":
		return runSeed(ctx, a, args)
	case "watch":
		return runWatch(ctx, a, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func runCatalog(a *app.App, args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	var (
		category = fs.String("category", "", "vietnamese or foreign")
		sub      = fs.String("sub", "", "subcategory slug")
		query    = fs.String("q", "", "search title, author, tags and description")
		bucket   = fs.String("bucket", "", "under-200, 200-300 or over-300")
		sortKey  = fs.String("sort", "", "price-asc, price-desc, title-alpha, rating-desc, newest or discount-desc")
		page     = fs.Int("page", 1, "page number")
		perPage  = fs.Int("per-page", catalog.DefaultPerPage, "products per page")
		featured = fs.Bool("featured", false, "list featured products only")
		newOnly  = fs.Bool("new", false, "list new releases only")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *featured || *newOnly {
		products := a.Catalog.ListFeatured()
		if *newOnly {
			products = a.Catalog.ListNewReleases()
		}
		return printProducts(os.Stdout, catalog.Sort(products, catalog.SortKey(*sortKey)))
	}

	p := a.Catalog.Query(catalog.Query{
		Category:    catalog.Category(*category),
		Subcategory: *sub,
		Search:      *query,
		Bucket:      catalog.PriceBucket(*bucket),
		Sort:        catalog.SortKey(*sortKey),
		Page:        *page,
		PerPage:     *perPage,
	})
	if err := printProducts(os.Stdout, p.Items); err != nil {
		return err
	}
	fmt.Printf("page %d/%d, %d products\n", p.Number, p.TotalPages, p.Total)
	return nil
}

func runProduct(a *app.App, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: product <id>")
	}
	p, err := a.Catalog.Lookup(args[0])
	if err != nil {
		return err
	}
	printProduct(os.Stdout, p)
	related, err := a.Catalog.ListRelated(p.ID, catalog.DefaultRelatedLimit)
	if err != nil {
		return err
	}
	if len(related) == 0 {
		return nil
	}
	fmt.Println("\nRelated:")
	return printProducts(os.Stdout, related)
}

func runCart(ctx context.Context, a *app.App, args []string) error {
	sub, rest := subcommand(args, "show")
	var err error
	switch sub {
	case "show":
	case "add":
		if len(rest) < 1 || len(rest) > 2 {
			return errors.New("usage: cart add <id> [qty]")
		}
		qty := 1
		if len(rest) == 2 {
			if qty, err = strconv.Atoi(rest[1]); err != nil {
				return fmt.Errorf("quantity: %w", err)
			}
		}
		id, err := catalog.ParseProductID(rest[0])
		if err != nil {
			return err
		}
		if _, err := a.Cart.Add(ctx, id, qty); err != nil {
			return err
		}
	case "set":
		if len(rest) != 2 {
			return errors.New("usage: cart set <id> <qty>")
		}
		id, err := catalog.ParseProductID(rest[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		if _, err := a.Cart.SetQuantity(ctx, id, qty); err != nil {
			return err
		}
	case "remove":
		if len(rest) != 1 {
			return errors.New("usage: cart remove <id>")
		}
		id, err := catalog.ParseProductID(rest[0])
		if err != nil {
			return err
		}
		if _, err := a.Cart.Remove(ctx, id); err != nil {
			return err
		}
	case "clear":
		if err := a.Cart.Clear(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown cart command %q", sub)
	}

	lines, err := a.Cart.Lines(ctx)
	if err != nil {
		return err
	}
	return printCart(os.Stdout, lines)
}

func runWishlist(ctx context.Context, a *app.App, args []string) error {
	sub, rest := subcommand(args, "show")
	if sub != "show" {
		if len(rest) != 1 {
			return fmt.Errorf("usage: wishlist %s <id>", sub)
		}
		id, err := catalog.ParseProductID(rest[0])
		if err != nil {
			return err
		}
		switch sub {
		case "add":
			res, err := a.Wishlist.Add(ctx, id)
			if err != nil {
				return err
			}
			if res == wishlist.AlreadyPresent {
				fmt.Printf("product %s is already in the wishlist\n", id)
			}
		case "remove":
			if err := a.Wishlist.Remove(ctx, id); err != nil {
				return err
			}
		case "toggle":
			in, err := a.Wishlist.Toggle(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("product %s in wishlist: %t\n", id, in)
		default:
			return fmt.Errorf("unknown wishlist command %q", sub)
		}
	}

	products, err := a.Wishlist.Products(ctx)
	if err != nil {
		return err
	}
	return printProducts(os.Stdout, products)
}

func runCheckout(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	var (
		email    = fs.String("email", "", "demo sign-in email, also the contact email")
		password = fs.String("password", "", "demo sign-in password (any value)")
		name     = fs.String("name", "", "recipient name")
		phone    = fs.String("phone", "", "recipient phone")
		address  = fs.String("address", "", "street address")
		city     = fs.String("city", "", "city")
		district = fs.String("district", "", "district")
		payment  = fs.String("payment", string(order.PaymentCOD), "cod, bank-transfer, card or e-wallet")
		delivery = fs.String("delivery", string(order.DeliveryStandard), "standard or express")
		note     = fs.String("note", "", "order note")
		quote    = fs.Bool("quote", false, "print the price summary without placing the order")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *quote {
		q, err := a.Checkout.Quote(ctx, order.DeliveryMethod(*delivery))
		if err != nil {
			return err
		}
		fmt.Printf("items: %d\nsubtotal: %s\nshipping: %s\ntotal: %s\n",
			q.Items, report.FormatVND(q.Subtotal), report.FormatVND(q.Shipping), report.FormatVND(q.Total))
		return nil
	}

	if *email != "" || *password != "" {
		if _, err := a.Session.Login(*email, *password); err != nil {
			return err
		}
	}
	o, err := a.Checkout.Place(ctx, checkout.Request{
		Customer: order.CustomerInfo{
			Name:     *name,
			Phone:    *phone,
			Email:    *email,
			Address:  *address,
			City:     *city,
			District: *district,
		},
		Payment:  order.PaymentMethod(*payment),
		Delivery: order.DeliveryMethod(*delivery),
		Note:     *note,
	})
	if err != nil {
		return err
	}
	printOrder(os.Stdout, o)
	return nil
}

func runOrders(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	var (
		user   = fs.String("user", "", "only orders of this user id")
		status = fs.String("status", "", "only orders with this status")
		from   = fs.String("from", "", "created on or after YYYY-MM-DD")
		to     = fs.String("to", "", "created on or before YYYY-MM-DD")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		orders []order.Order
		err    error
	)
	if *user != "" {
		orders, err = a.Orders.ListByUser(ctx, *user)
	} else {
		orders, err = a.Orders.List(ctx)
	}
	if err != nil {
		return err
	}

	var f order.Filter
	if *status != "" {
		if f.Status, err = order.ParseStatus(*status); err != nil {
			return err
		}
	}
	if f.From, err = parseDay(*from, false); err != nil {
		return err
	}
	if f.To, err = parseDay(*to, true); err != nil {
		return err
	}
	return printOrders(os.Stdout, f.Apply(orders))
}

func runOrder(ctx context.Context, a *app.App, args []string) error {
	id, err := orderID(args, "order <id>")
	if err != nil {
		return err
	}
	o, err := a.Orders.Get(ctx, id)
	if err != nil {
		return err
	}
	printOrder(os.Stdout, o)
	return nil
}

func runStatus(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var (
		note = fs.String("note", "", "note recorded in the status history")
		by   = fs.String("by", "admin", "who made the change")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return errors.New("usage: status [-note text] [-by name] <id> <status>")
	}
	id, err := orderID(rest[:1], "status <id> <status>")
	if err != nil {
		return err
	}
	status, err := order.ParseStatus(rest[1])
	if err != nil {
		return err
	}
	o, err := a.Orders.UpdateStatus(ctx, id, status, *note, *by)
	if err != nil {
		return err
	}
	printOrder(os.Stdout, o)
	return nil
}

func runCancel(ctx context.Context, a *app.App, args []string) error {
	id, err := orderID(args, "cancel <id>")
	if err != nil {
		return err
	}
	o, err := a.Orders.Cancel(ctx, id)
	if err != nil {
		return err
	}
	printOrder(os.Stdout, o)
	return nil
}

func runSeed(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	var (
		orderCount = fs.Int("orders", data.DefaultSeedOrders, "target number of orders to store")
		batchSize  = fs.Int("batch", 50, "orders appended per write")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	start := time.Now()
	created, err := data.SeedDataset(ctx, a.Orders, a.Catalog, data.SeedConfig{
		Orders:    *orderCount,
		BatchSize: *batchSize,
	})
	if err != nil {
		return err
	}
	fmt.Printf("dataset ready (orders target=%d, created=%d) in %s\n", *orderCount, created, time.Since(start).Round(time.Millisecond))
	return nil
}

func runWatch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	only := fs.String("collection", "", "only print changes of this collection")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events, stop, err := a.Backend.Broadcaster.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer stop()

	fmt.Println("watching for changes, Ctrl-C to stop")
	for ev := range events {
		if *only != "" && ev.Collection != *only {
			continue
		}
		printEvent(ev)
	}
	return nil
}

func printEvent(ev storage.Event) {
	ts := ev.Time.Format(time.TimeOnly)
	if ev.Collection == cart.CollectionName {
		if change, err := cart.DecodeChange(ev); err == nil {
			fmt.Printf("%s cart %-6s product=%d qty=%d items=%d origin=%s\n",
				ts, change.Action, change.ProductID, change.Quantity, cart.ItemCount(change.Cart), ev.Origin)
			return
		}
	}
	fmt.Printf("%s %-8s %-6s subject=%s origin=%s\n", ts, ev.Collection, ev.Action, ev.Subject, ev.Origin)
}

func subcommand(args []string, def string) (string, []string) {
	if len(args) == 0 {
		return def, nil
	}
	return args[0], args[1:]
}

func orderID(args []string, use string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", use)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("order id %q: %w", args[0], err)
	}
	return id, nil
}

// parseDay reads YYYY-MM-DD in local time; endOfDay moves to the last instant of that day.
func parseDay(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
