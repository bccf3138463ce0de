package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"

	"github.com/shopspring/decimal"
)

const usage = `Available commands:
  stock [item_id] [location_id]          stock levels
  alerts                                 below-par and at-risk stock
  onhand                                 on-hand totals across locations
  suggest [vendor_id]                    reorder suggestions
  receive <item> <location> <qty> [cost] receive goods
  issue <item> <location> <qty>          issue (consume) stock
  transfer <item> <from> <to> <qty>      move stock between locations
  adjust <item> <location> <qty> [why]   set on-hand to an absolute quantity
  requisitions [status]                  list requisitions
  pick <requisition_id>                  pick an approved requisition
  counts [status]                        list count sessions
  apply-count <session_id>               apply a completed count`

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:]; the first element is the subcommand name.
// Mutations are recorded against CLI_USERNAME (default "admin").
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	if len(args) == 0 || args[0] == "help" {
		fmt.Println(usage)
		return
	}

	session := resolveActor(ctx, svc, args[0])

	switch args[0] {
	case "stock":
		filter := core.StockFilter{}
		if len(args) > 1 {
			id := mustInt(args[1], "item_id")
			filter.ItemID = &id
		}
		if len(args) > 2 {
			id := mustInt(args[2], "location_id")
			filter.LocationID = &id
		}
		result, err := svc.GetStockLevels(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to get stock levels: %v", err)
		}
		printStockLevels("STOCK LEVELS", result.Levels)

	case "alerts":
		alerts, err := svc.GetParAlerts(ctx, core.AlertFilter{})
		if err != nil {
			log.Fatalf("Failed to get alerts: %v", err)
		}
		printStockLevels("BELOW PAR", alerts.BelowPar)
		printStockLevels("AT RISK", alerts.AtRisk)

	case "onhand":
		result, err := svc.ListGlobalOnHand(ctx)
		if err != nil {
			log.Fatalf("Failed to get on-hand totals: %v", err)
		}
		printOnHand(result.Items)

	case "suggest", "sug":
		filter := core.SuggestionFilter{}
		if len(args) > 1 {
			id := mustInt(args[1], "vendor_id")
			filter.VendorID = &id
		}
		result, err := svc.SuggestOrders(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to suggest orders: %v", err)
		}
		printSuggestions(result.Suggestions)

	case "receive":
		requireArgs(args, 4, "receive <item_id> <location_id> <qty> [unit_cost]")
		req := core.ReceiveRequest{
			ItemID:     mustInt(args[1], "item_id"),
			LocationID: mustInt(args[2], "location_id"),
			Quantity:   mustDecimal(args[3], "qty"),
			Actor:      session.UserID,
		}
		if len(args) > 4 {
			cost := mustDecimal(args[4], "unit_cost")
			req.Cost = &cost
		}
		tx, err := svc.Receive(ctx, req)
		if err != nil {
			log.Fatalf("Receive failed: %v", err)
		}
		printTransaction(tx)

	case "issue":
		requireArgs(args, 4, "issue <item_id> <location_id> <qty>")
		tx, err := svc.Issue(ctx, core.IssueRequest{
			ItemID:     mustInt(args[1], "item_id"),
			LocationID: mustInt(args[2], "location_id"),
			Quantity:   mustDecimal(args[3], "qty"),
			Actor:      session.UserID,
		})
		if err != nil {
			fatalStock("Issue failed", err)
		}
		printTransaction(tx)

	case "transfer", "mv":
		requireArgs(args, 5, "transfer <item_id> <from_location_id> <to_location_id> <qty>")
		tx, err := svc.Transfer(ctx, core.TransferRequest{
			ItemID:         mustInt(args[1], "item_id"),
			FromLocationID: mustInt(args[2], "from_location_id"),
			ToLocationID:   mustInt(args[3], "to_location_id"),
			Quantity:       mustDecimal(args[4], "qty"),
			Actor:          session.UserID,
		})
		if err != nil {
			fatalStock("Transfer failed", err)
		}
		printTransaction(tx)

	case "adjust":
		requireArgs(args, 4, "adjust <item_id> <location_id> <qty> [reason]")
		req := core.AdjustRequest{
			ItemID:     mustInt(args[1], "item_id"),
			LocationID: mustInt(args[2], "location_id"),
			Quantity:   mustDecimal(args[3], "qty"),
			Actor:      session.UserID,
		}
		if len(args) > 4 {
			req.Reason = strings.Join(args[4:], " ")
		}
		tx, err := svc.Adjust(ctx, req)
		if err != nil {
			log.Fatalf("Adjust failed: %v", err)
		}
		printTransaction(tx)

	case "requisitions", "reqs":
		filter := core.RequisitionFilter{}
		if len(args) > 1 {
			filter.Status = core.RequisitionStatus(strings.ToUpper(args[1]))
		}
		result, err := svc.ListRequisitions(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to list requisitions: %v", err)
		}
		printRequisitions(result.Requisitions)

	case "pick":
		requireArgs(args, 2, "pick <requisition_id>")
		req, err := svc.PickRequisition(ctx, mustInt(args[1], "requisition_id"), session.UserID)
		if err != nil {
			fatalStock("Pick failed", err)
		}
		fmt.Printf("Requisition %s is now %s (%d lines moved).\n", req.Number, req.Status, len(req.Lines))

	case "counts":
		filter := core.CountFilter{}
		if len(args) > 1 {
			filter.Status = core.CountStatus(strings.ToUpper(args[1]))
		}
		result, err := svc.ListCounts(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to list counts: %v", err)
		}
		printCounts(result.Sessions)

	case "apply-count":
		requireArgs(args, 2, "apply-count <session_id>")
		cs, err := svc.ApplyCountVariance(ctx, mustInt(args[1], "session_id"), session.UserID)
		if err != nil {
			log.Fatalf("Apply failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(cs)

	default:
		log.Fatalf("Unknown command: %s\n%s", args[0], usage)
	}
}

// resolveActor loads the CLI user and checks it may run cmd.
func resolveActor(ctx context.Context, svc app.ApplicationService, cmd string) *app.UserSession {
	username := os.Getenv("CLI_USERNAME")
	if username == "" {
		username = "admin"
	}
	session, err := svc.ResolveActor(ctx, username)
	if err != nil {
		log.Fatalf("Failed to resolve CLI user %q: %v", username, err)
	}
	if module, action, ok := commandCapability(cmd); ok {
		if err := svc.Authorize(session.Role, module, action); err != nil {
			log.Fatalf("%s: %v", username, err)
		}
	}
	return session
}

// commandCapability maps a subcommand onto the permission it needs.
func commandCapability(cmd string) (app.Module, app.Action, bool) {
	switch cmd {
	case "stock":
		return app.ModuleStock, app.ActionView, true
	case "alerts", "onhand", "suggest", "sug":
		return app.ModuleReports, app.ActionView, true
	case "receive":
		return app.ModuleReceiving, app.ActionCreate, true
	case "issue", "transfer", "mv":
		return app.ModuleStock, app.ActionCreate, true
	case "adjust":
		return app.ModuleStock, app.ActionEdit, true
	case "requisitions", "reqs":
		return app.ModuleRequisitions, app.ActionView, true
	case "pick":
		return app.ModuleRequisitions, app.ActionEdit, true
	case "counts":
		return app.ModuleCounts, app.ActionView, true
	case "apply-count":
		return app.ModuleCounts, app.ActionApprove, true
	}
	return "", "", false
}

func requireArgs(args []string, n int, form string) {
	if len(args) < n {
		log.Fatalf("Usage: app %s", form)
	}
}

func mustInt(s, name string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		log.Fatalf("%s must be a positive integer, got %q", name, s)
	}
	return n
}

func mustDecimal(s, name string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("%s must be a number, got %q", name, s)
	}
	return d
}

// fatalStock prints every shortfall before exiting when err is a stock shortage.
func fatalStock(prefix string, err error) {
	var short *core.InsufficientStockError
	if errors.As(err, &short) {
		fmt.Fprintf(os.Stderr, "%s: insufficient stock\n", prefix)
		for _, s := range short.Shortfalls {
			fmt.Fprintf(os.Stderr, "  item %d @ location %d: requested %s, available %s\n",
				s.ItemID, s.LocationID, s.Requested, s.Available)
		}
		os.Exit(1)
	}
	log.Fatalf("%s: %v", prefix, err)
}

func printStockLevels(title string, levels []core.StockLevel) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %s (%d)\n", title, len(levels))
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-10s %-22s %-16s %8s %8s %8s\n", "ITEM", "NAME", "LOCATION", "ON HAND", "RSVD", "PAR")
	fmt.Println(strings.Repeat("-", 78))
	for _, l := range levels {
		fmt.Printf("  %-10s %-22s %-16s %8s %8s %8s\n",
			truncate(l.ItemCode, 10), truncate(l.ItemName, 22), truncate(l.LocationName, 16),
			l.OnHand.String(), l.Reserved.String(), l.Par.String())
	}
	fmt.Println(strings.Repeat("=", 78))
}

func printOnHand(items []core.ItemOnHand) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %-58s\n", "ON HAND BY ITEM")
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %-10s %-28s %10s %8s\n", "ITEM", "NAME", "ON HAND", "LOCS")
	fmt.Println(strings.Repeat("-", 62))
	for _, it := range items {
		fmt.Printf("  %-10s %-28s %10s %8d\n",
			truncate(it.ItemCode, 10), truncate(it.ItemName, 28), it.TotalOnHand.String(), it.LocationCount)
	}
	fmt.Println(strings.Repeat("=", 62))
}

func printSuggestions(suggestions []core.OrderSuggestion) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  ORDER SUGGESTIONS (%d)\n", len(suggestions))
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-10s %-16s %9s %9s %9s %9s %10s\n", "ITEM", "LOCATION", "ON HAND", "PAR", "PROJ", "ORDER", "EST COST")
	fmt.Println(strings.Repeat("-", 78))
	for _, s := range suggestions {
		cost := "-"
		if s.EstimatedCost != nil {
			cost = s.EstimatedCost.StringFixed(2)
		}
		fmt.Printf("  %-10s %-16s %9s %9s %9s %9s %10s\n",
			truncate(s.ItemCode, 10), truncate(s.LocationName, 16),
			s.CurrentOnHand.String(), s.Par.String(), s.ProjectedOnHand.StringFixed(2),
			s.SuggestedQty.String(), cost)
	}
	fmt.Println(strings.Repeat("=", 78))
}

func printRequisitions(reqs []core.Requisition) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %-14s %-10s %6s %6s %6s %-14s\n", "NUMBER", "STATUS", "FROM", "TO", "LINES", "CREATED")
	fmt.Println(strings.Repeat("-", 62))
	for _, r := range reqs {
		fmt.Printf("  %-14s %-10s %6d %6d %6d %-14s\n",
			r.Number, r.Status, r.FromLocationID, r.ToLocationID, len(r.Lines), r.CreatedAt.Format("2006-01-02"))
	}
	fmt.Println(strings.Repeat("=", 62))
}

func printCounts(sessions []core.CountSession) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %-14s %-12s %8s %6s %-14s\n", "NUMBER", "STATUS", "LOCATION", "LINES", "STARTED")
	fmt.Println(strings.Repeat("-", 62))
	for _, cs := range sessions {
		fmt.Printf("  %-14s %-12s %8d %6d %-14s\n",
			cs.Number, cs.Status, cs.LocationID, len(cs.Lines), cs.StartedAt.Format("2006-01-02"))
	}
	fmt.Println(strings.Repeat("=", 62))
}

func printTransaction(tx *core.InventoryTransaction) {
	fmt.Printf("Recorded %s #%d: item %d qty %s\n", tx.Type, tx.ID, tx.ItemID, tx.Quantity.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
