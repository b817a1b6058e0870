// Command platosctl manages menu items through a running platos server.
//
//	platosctl [-addr URL] list [-active]
//	platosctl get ID
//	platosctl create -title T -description D -price P [-active] (-image FILE | -image-url URL)
//	platosctl update ID [-title T] [-description D] [-price P] [-active=BOOL] [-image FILE | -image-url URL | -keep-image]
//	platosctl toggle ID
//	platosctl delete ID
//	platosctl login -user U -password P
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/vbonduro/platos/internal/adminlist"
	"github.com/vbonduro/platos/internal/client"
	"github.com/vbonduro/platos/internal/domain"
	"github.com/vbonduro/platos/internal/imagestore"
)

var errUsage = errors.New("usage: platosctl [-addr URL] <list|get|create|update|toggle|delete|login> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "platosctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *slog.Logger) error {
	global := flag.NewFlagSet("platosctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	addr := global.String("addr", envOr("PLATOS_URL", "http://localhost:8080"), "platos server base URL")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}

	c := client.New(*addr, nil)
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "list":
		return runList(ctx, c, cmdArgs, out)
	case "get":
		return runGet(ctx, c, cmdArgs, out)
	case "create":
		return runCreate(ctx, c, cmdArgs, out)
	case "update":
		return runUpdate(ctx, c, cmdArgs, out)
	case "toggle":
		return runToggle(ctx, c, cmdArgs, out, logger)
	case "delete":
		return runDelete(ctx, c, cmdArgs, out, logger)
	case "login":
		return runLogin(ctx, c, cmdArgs, out)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func runList(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	activeOnly := fs.Bool("active", false, "only active items")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var items []*domain.MenuItem
	var err error
	if *activeOnly {
		items, err = c.ListActive(ctx)
	} else {
		items, err = c.List(ctx)
	}
	if err != nil {
		return err
	}
	printItems(out, items)
	return nil
}

func runGet(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	item, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	printItems(out, []*domain.MenuItem{item})
	return nil
}

func runCreate(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "item title")
	description := fs.String("description", "", "item description")
	price := fs.String("price", "", "item price")
	active := fs.Bool("active", false, "show the item in the carousel")
	imagePath := fs.String("image", "", "image file to upload")
	imageURL := fs.String("image-url", "", "existing image URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	img, err := readImage(*imagePath)
	if err != nil {
		return err
	}
	item, err := c.Create(ctx, client.CreateFields{
		Title:       *title,
		Description: *description,
		Price:       *price,
		Active:      *active,
		ImageURL:    *imageURL,
		Image:       img,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, item.ID)
	return nil
}

func runUpdate(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	id := args[0]

	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	price := fs.String("price", "", "new price")
	active := fs.String("active", "", "true or false")
	imagePath := fs.String("image", "", "image file to upload")
	imageURL := fs.String("image-url", "", "image URL to store")
	keepImage := fs.Bool("keep-image", false, "leave the current image unchanged")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	img, err := readImage(*imagePath)
	if err != nil {
		return err
	}
	fields := client.UpdateFields{ImageURL: *imageURL, KeepImage: *keepImage, Image: img}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			fields.Title = title
		case "description":
			fields.Description = description
		case "price":
			fields.Price = price
		}
	})
	if *active != "" {
		b, err := strconv.ParseBool(*active)
		if err != nil {
			return fmt.Errorf("invalid -active %q: %w", *active, err)
		}
		fields.Active = &b
	}

	item, err := c.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	printItems(out, []*domain.MenuItem{item})
	return nil
}

func runToggle(ctx context.Context, c *client.Client, args []string, out io.Writer, logger *slog.Logger) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	ctrl := adminlist.NewController(c, logger)
	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}
	err = ctrl.Toggle(ctx, id)
	printState(out, ctrl.State())
	return err
}

func runDelete(ctx context.Context, c *client.Client, args []string, out io.Writer, logger *slog.Logger) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	ctrl := adminlist.NewController(c, logger)
	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}
	err = ctrl.Remove(ctx, id)
	printState(out, ctrl.State())
	return err
}

func runLogin(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("user", os.Getenv("ADMIN_USERNAME"), "admin username")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.Login(ctx, *user, *password); err != nil {
		return err
	}
	fmt.Fprintln(out, "credentials accepted")
	return nil
}

func printItems(out io.Writer, items []*domain.MenuItem) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tACTIVE\tIMAGE")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%t\t%s\n", item.ID, item.Title, item.Price, item.Active, item.ImageURL)
	}
	_ = tw.Flush()
}

func printState(out io.Writer, s adminlist.State) {
	items := make([]*domain.MenuItem, len(s.Items))
	for i := range s.Items {
		items[i] = &s.Items[i]
	}
	printItems(out, items)
	if s.Error != "" {
		fmt.Fprintln(out, "error:", s.Error)
	}
}

func readImage(path string) (*client.Image, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	name := filepath.Base(path)
	return &client.Image{Filename: name, ContentType: contentTypeFor(name), Data: data}, nil
}

// contentTypeFor names the type of known image extensions. Anything else is
// left empty for the server to sniff.
func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return imagestore.ExtToMimeType(name)
	}
	return ""
}

func singleID(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", errUsage
	}
	return args[0], nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
