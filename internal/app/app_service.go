package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hotel-inventory/internal/cache"
	"hotel-inventory/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by AuthenticateUser for any bad username/password pair.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Services bundles the core services the application layer orchestrates.
type Services struct {
	Catalog      core.CatalogService
	Vendors      core.VendorService
	Users        core.UserService
	Ledger       core.StockLedger
	Requisitions core.RequisitionService
	Counts       core.CountService
	Purchases    core.PurchaseRequestService
	Reporting    core.ReportingService
	Suggestions  core.SuggestionService
}

type appService struct {
	pool   *pgxpool.Pool
	svc    Services
	cache  *cache.Cache
	authz  Authorizer
	logger *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// reportCache may be nil, in which case reports always hit the database.
func NewAppService(pool *pgxpool.Pool, svc Services, reportCache *cache.Cache, authz Authorizer, logger *zap.Logger) ApplicationService {
	return &appService{pool: pool, svc: svc, cache: reportCache, authz: authz, logger: logger}
}

// NewServices wires every core service over pool.
func NewServices(pool *pgxpool.Pool, cfg core.SuggestionConfig, atRiskFactor decimal.Decimal, logger *zap.Logger) Services {
	ledger := core.NewStockLedger(pool, logger)
	docs := core.NewDocumentService()
	return Services{
		Catalog:      core.NewCatalogService(pool),
		Vendors:      core.NewVendorService(pool),
		Users:        core.NewUserService(pool),
		Ledger:       ledger,
		Requisitions: core.NewRequisitionService(pool, ledger, docs, logger),
		Counts:       core.NewCountService(pool, ledger, docs, logger),
		Purchases:    core.NewPurchaseRequestService(pool, ledger, docs, logger),
		Reporting:    core.NewReportingService(pool, atRiskFactor),
		Suggestions:  core.NewSuggestionService(pool, cfg),
	}
}

// ── Identity ──────────────────────────────────────────────────────────────────

// AuthenticateUser verifies credentials against the stored bcrypt hash.
func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	user, err := s.svc.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &UserSession{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *appService) ResolveActor(ctx context.Context, username string) (*UserSession, error) {
	user, err := s.svc.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &UserSession{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	user, err := s.svc.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{UserID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role}, nil
}

func (s *appService) Authorize(role core.Role, module Module, action Action) error {
	return s.authz.Authorize(role, module, action)
}

func (s *appService) Health(ctx context.Context) *HealthResult {
	res := &HealthResult{Status: "ok", Database: "ok", Cache: "disabled"}
	if err := s.pool.Ping(ctx); err != nil {
		s.logger.Warn("database ping failed", zap.Error(err))
		res.Status, res.Database = "degraded", "error"
	}
	if s.cache != nil {
		res.Cache = "ok"
		if err := s.cache.Ping(ctx); err != nil {
			s.logger.Warn("cache ping failed", zap.Error(err))
			res.Status, res.Cache = "degraded", "error"
		}
	}
	return res
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *appService) ListItems(ctx context.Context, filter core.ItemFilter) (*ItemListResult, error) {
	items, err := s.svc.Catalog.ListItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ItemListResult{Items: items}, nil
}

// GetItem resolves ref as a numeric ID or an item code.
func (s *appService) GetItem(ctx context.Context, ref string) (*core.Item, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		return s.svc.Catalog.GetItem(ctx, id)
	}
	return s.svc.Catalog.GetItemByCode(ctx, ref)
}

func (s *appService) CreateItem(ctx context.Context, input core.ItemInput) (*core.Item, error) {
	return s.svc.Catalog.CreateItem(ctx, input)
}

func (s *appService) UpdateItem(ctx context.Context, id int, update core.ItemUpdate) (*core.Item, error) {
	item, err := s.svc.Catalog.UpdateItem(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return item, nil
}

func (s *appService) DeactivateItem(ctx context.Context, id int) error {
	if err := s.svc.Catalog.DeactivateItem(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *appService) ListCategories(ctx context.Context) (*CategoryListResult, error) {
	cats, err := s.svc.Catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &CategoryListResult{Categories: cats}, nil
}

func (s *appService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*core.Category, error) {
	return s.svc.Catalog.CreateCategory(ctx, req.Name, req.ParentID)
}

func (s *appService) SetCategoryParent(ctx context.Context, id int, parentID *int) error {
	return s.svc.Catalog.SetCategoryParent(ctx, id, parentID)
}

func (s *appService) ListLocations(ctx context.Context, includeInactive bool) (*LocationListResult, error) {
	locs, err := s.svc.Catalog.ListLocations(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	return &LocationListResult{Locations: locs}, nil
}

func (s *appService) GetLocation(ctx context.Context, id int) (*LocationResult, error) {
	loc, err := s.svc.Catalog.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	path, err := s.svc.Catalog.LocationPath(ctx, id)
	if err != nil {
		return nil, err
	}
	return &LocationResult{Location: *loc, Path: path}, nil
}

func (s *appService) CreateLocation(ctx context.Context, input core.LocationInput) (*core.Location, error) {
	return s.svc.Catalog.CreateLocation(ctx, input)
}

func (s *appService) SetLocationParent(ctx context.Context, id int, parentID *int) error {
	return s.svc.Catalog.SetLocationParent(ctx, id, parentID)
}

func (s *appService) DeactivateLocation(ctx context.Context, id int) error {
	if err := s.svc.Catalog.DeactivateLocation(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *appService) ListVendors(ctx context.Context) (*VendorsResult, error) {
	vendors, err := s.svc.Vendors.GetVendors(ctx)
	if err != nil {
		return nil, err
	}
	return &VendorsResult{Vendors: vendors}, nil
}

// GetVendor resolves ref as a numeric ID or a vendor code.
func (s *appService) GetVendor(ctx context.Context, ref string) (*core.Vendor, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		return s.svc.Vendors.GetVendor(ctx, id)
	}
	return s.svc.Vendors.GetVendorByCode(ctx, ref)
}

func (s *appService) CreateVendor(ctx context.Context, input core.VendorInput) (*core.Vendor, error) {
	return s.svc.Vendors.CreateVendor(ctx, input)
}

// ── Stock ledger ──────────────────────────────────────────────────────────────

func (s *appService) GetStockLevels(ctx context.Context, filter core.StockFilter) (*StockResult, error) {
	levels, err := s.svc.Ledger.ListStockLevels(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}

func (s *appService) GetStockLevel(ctx context.Context, itemID, locationID int) (*core.StockLevel, error) {
	return s.svc.Ledger.GetStockLevel(ctx, itemID, locationID)
}

func (s *appService) Transfer(ctx context.Context, req core.TransferRequest) (*core.InventoryTransaction, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.InventoryTransaction, error) {
		return s.svc.Ledger.Transfer(ctx, req)
	})
}

func (s *appService) Issue(ctx context.Context, req core.IssueRequest) (*core.InventoryTransaction, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.InventoryTransaction, error) {
		return s.svc.Ledger.Issue(ctx, req)
	})
}

func (s *appService) Receive(ctx context.Context, req core.ReceiveRequest) (*core.InventoryTransaction, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.InventoryTransaction, error) {
		return s.svc.Ledger.Receive(ctx, req)
	})
}

func (s *appService) Adjust(ctx context.Context, req core.AdjustRequest) (*core.InventoryTransaction, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.InventoryTransaction, error) {
		return s.svc.Ledger.Adjust(ctx, req)
	})
}

func (s *appService) Reserve(ctx context.Context, req QuantityRequest) (*core.StockLevel, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.StockLevel, error) {
		return s.svc.Ledger.Reserve(ctx, req.ItemID, req.LocationID, req.Quantity)
	})
}

func (s *appService) Release(ctx context.Context, req QuantityRequest) (*core.StockLevel, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.StockLevel, error) {
		return s.svc.Ledger.Release(ctx, req.ItemID, req.LocationID, req.Quantity)
	})
}

func (s *appService) SetPar(ctx context.Context, req QuantityRequest) (*core.StockLevel, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.StockLevel, error) {
		return s.svc.Ledger.SetPar(ctx, req.ItemID, req.LocationID, req.Quantity)
	})
}

func (s *appService) ListTransactions(ctx context.Context, filter core.TransactionFilter) (*TransactionListResult, error) {
	txs, err := s.svc.Ledger.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &TransactionListResult{Transactions: txs}, nil
}

// ── Requisitions ──────────────────────────────────────────────────────────────

func (s *appService) CreateRequisition(ctx context.Context, input core.RequisitionInput) (*core.Requisition, error) {
	return s.svc.Requisitions.Create(ctx, input)
}

func (s *appService) GetRequisition(ctx context.Context, id int) (*core.Requisition, error) {
	return s.svc.Requisitions.Get(ctx, id)
}

func (s *appService) ListRequisitions(ctx context.Context, filter core.RequisitionFilter) (*RequisitionListResult, error) {
	reqs, err := s.svc.Requisitions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &RequisitionListResult{Requisitions: reqs}, nil
}

func (s *appService) ApproveRequisition(ctx context.Context, id, actor int) (*core.Requisition, error) {
	return s.svc.Requisitions.Approve(ctx, id, actor)
}

func (s *appService) DenyRequisition(ctx context.Context, req DenyRequest) (*core.Requisition, error) {
	return s.svc.Requisitions.Deny(ctx, req.ID, req.Actor, req.Reason)
}

func (s *appService) PickRequisition(ctx context.Context, id, actor int) (*core.Requisition, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.Requisition, error) {
		return s.svc.Requisitions.Pick(ctx, id, actor)
	})
}

func (s *appService) CompleteRequisition(ctx context.Context, id int) (*core.Requisition, error) {
	return s.svc.Requisitions.Complete(ctx, id)
}

func (s *appService) CancelRequisition(ctx context.Context, id int) (*core.Requisition, error) {
	return s.svc.Requisitions.Cancel(ctx, id)
}

// ── Counts ────────────────────────────────────────────────────────────────────

func (s *appService) StartCount(ctx context.Context, req StartCountRequest) (*core.CountSession, error) {
	return s.svc.Counts.Start(ctx, req.LocationID, req.Actor, req.Notes)
}

func (s *appService) GetCount(ctx context.Context, id int) (*core.CountSession, error) {
	return s.svc.Counts.Get(ctx, id)
}

func (s *appService) ListCounts(ctx context.Context, filter core.CountFilter) (*CountListResult, error) {
	sessions, err := s.svc.Counts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &CountListResult{Sessions: sessions}, nil
}

func (s *appService) AddCountLine(ctx context.Context, sessionID int, input core.CountLineInput) (*core.CountLine, error) {
	return s.svc.Counts.AddLine(ctx, sessionID, input)
}

func (s *appService) CompleteCount(ctx context.Context, id int) (*core.CountSession, error) {
	return s.svc.Counts.Complete(ctx, id)
}

func (s *appService) CancelCount(ctx context.Context, id int) (*core.CountSession, error) {
	return s.svc.Counts.Cancel(ctx, id)
}

func (s *appService) ApplyCountVariance(ctx context.Context, id, approver int) (*core.CountSession, error) {
	return invalidateAfter(ctx, s.cache, func() (*core.CountSession, error) {
		return s.svc.Counts.ApplyVariance(ctx, id, approver)
	})
}

// ── Purchase requests ─────────────────────────────────────────────────────────

func prResult(pr *core.PurchaseRequest, err error) (*PurchaseRequestResult, error) {
	if err != nil {
		return nil, err
	}
	return &PurchaseRequestResult{PurchaseRequest: pr, Total: pr.Total()}, nil
}

func (s *appService) CreatePurchaseRequest(ctx context.Context, input core.PurchaseRequestInput) (*PurchaseRequestResult, error) {
	return prResult(s.svc.Purchases.Create(ctx, input))
}

func (s *appService) GetPurchaseRequest(ctx context.Context, id int) (*PurchaseRequestResult, error) {
	return prResult(s.svc.Purchases.Get(ctx, id))
}

func (s *appService) ListPurchaseRequests(ctx context.Context, filter core.PurchaseRequestFilter) (*PurchaseRequestListResult, error) {
	prs, err := s.svc.Purchases.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PurchaseRequestListResult{Requests: prs}, nil
}

func (s *appService) SubmitPurchaseRequest(ctx context.Context, id int) (*PurchaseRequestResult, error) {
	return prResult(s.svc.Purchases.Submit(ctx, id))
}

func (s *appService) ApprovePurchaseRequest(ctx context.Context, id, actor int) (*PurchaseRequestResult, error) {
	return prResult(s.svc.Purchases.Approve(ctx, id, actor))
}

func (s *appService) DenyPurchaseRequest(ctx context.Context, req DenyRequest) (*PurchaseRequestResult, error) {
	return prResult(s.svc.Purchases.Deny(ctx, req.ID, req.Actor, req.Reason))
}

func (s *appService) CancelPurchaseRequest(ctx context.Context, id int) (*PurchaseRequestResult, error) {
	return prResult(s.svc.Purchases.Cancel(ctx, id))
}

func (s *appService) OrderPurchaseRequest(ctx context.Context, id int) (*PurchaseRequestResult, error) {
	return prResult(s.svc.Purchases.MarkOrdered(ctx, id))
}

func (s *appService) ReceivePurchaseRequest(ctx context.Context, req ReceivePurchaseRequestRequest) (*PurchaseRequestResult, error) {
	pr, err := s.svc.Purchases.Receive(ctx, req.ID, req.LocationID, req.Actor)
	if err == nil {
		s.cache.Invalidate(ctx)
	}
	return prResult(pr, err)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) GetParAlerts(ctx context.Context, filter core.AlertFilter) (*core.ParAlerts, error) {
	key := fmt.Sprintf("alerts:item=%s:loc=%s", intKey(filter.ItemID), intKey(filter.LocationID))
	return cache.Remember(ctx, s.cache, key, func() (*core.ParAlerts, error) {
		return s.svc.Reporting.ParAlerts(ctx, filter)
	})
}

func (s *appService) GetGlobalOnHand(ctx context.Context, itemID int) (*core.ItemOnHand, error) {
	return s.svc.Reporting.GlobalOnHand(ctx, itemID)
}

func (s *appService) ListGlobalOnHand(ctx context.Context) (*OnHandListResult, error) {
	items, err := s.svc.Reporting.ListGlobalOnHand(ctx)
	if err != nil {
		return nil, err
	}
	return &OnHandListResult{Items: items}, nil
}

func (s *appService) SuggestOrders(ctx context.Context, filter core.SuggestionFilter) (*SuggestionResult, error) {
	key := fmt.Sprintf("suggest:vendor=%s:loc=%s:buffer=%s",
		intKey(filter.VendorID), intKey(filter.LocationID), intKey(filter.LeadTimeBufferDays))
	return cache.Remember(ctx, s.cache, key, func() (*SuggestionResult, error) {
		sugs, err := s.svc.Suggestions.SuggestOrders(ctx, filter)
		if err != nil {
			return nil, err
		}
		return &SuggestionResult{Suggestions: sugs}, nil
	})
}

func (s *appService) ProjectUsage(ctx context.Context, req ProjectionRequest) (*core.Projection, error) {
	return s.svc.Suggestions.Project(ctx, req.ItemID, req.LocationID, req.DaysAhead)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// invalidateAfter runs a stock mutation and bumps the report cache on success.
func invalidateAfter[T any](ctx context.Context, c *cache.Cache, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil {
		c.Invalidate(ctx)
	}
	return v, err
}

func intKey(p *int) string {
	if p == nil {
		return "*"
	}
	return strconv.Itoa(*p)
}
