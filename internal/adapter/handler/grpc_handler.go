package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/core/service"
)

const (
	ServiceName       = "catalog.v1.CatalogService"
	TenantMetadataKey = "x-tenant-id"
)

// CatalogServer is the RPC surface. GRPCHandler is its only implementation.
type CatalogServer interface {
	GetMenu(ctx context.Context, req *MenuRequest) (*service.MenuPage, error)
	GetMenuItem(ctx context.Context, req *ItemRequest) (*domain.CatalogView, error)
	GetInventory(ctx context.Context, req *Empty) (*service.InventoryReport, error)
	GetInventoryItem(ctx context.Context, req *ItemRequest) (*service.InventoryEntry, error)
	UpsertMenuItem(ctx context.Context, req *domain.MenuItem) (*domain.MenuItem, error)
	UpsertModifierGroup(ctx context.Context, req *domain.ModifierGroup) (*domain.ModifierGroup, error)
	AdjustStock(ctx context.Context, req *AdjustStockRequest) (*service.InventoryEntry, error)
	SetThreshold(ctx context.Context, req *SetThresholdRequest) (*service.InventoryEntry, error)
	ListPricingRules(ctx context.Context, req *Empty) (*RuleList, error)
	UpsertPricingRule(ctx context.Context, req *domain.PricingRule) (*domain.PricingRule, error)
	DeactivatePricingRule(ctx context.Context, req *RuleRequest) (*domain.PricingRule, error)
}

var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetMenu", CatalogServer.GetMenu),
		unary("GetMenuItem", CatalogServer.GetMenuItem),
		unary("GetInventory", CatalogServer.GetInventory),
		unary("GetInventoryItem", CatalogServer.GetInventoryItem),
		unary("UpsertMenuItem", CatalogServer.UpsertMenuItem),
		unary("UpsertModifierGroup", CatalogServer.UpsertModifierGroup),
		unary("AdjustStock", CatalogServer.AdjustStock),
		unary("SetThreshold", CatalogServer.SetThreshold),
		unary("ListPricingRules", CatalogServer.ListPricingRules),
		unary("UpsertPricingRule", CatalogServer.UpsertPricingRule),
		unary("DeactivatePricingRule", CatalogServer.DeactivatePricingRule),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog.proto",
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// unary adapts a typed method to the generic gRPC handler signature.
func unary[Req, Resp any](name string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CatalogServer), ctx, req.(*Req))
			})
		},
	}
}

type GRPCHandler struct {
	catalog *service.CatalogService
}

func NewGRPCHandler(catalog *service.CatalogService) *GRPCHandler {
	return &GRPCHandler{catalog: catalog}
}

func (h *GRPCHandler) GetMenu(ctx context.Context, req *MenuRequest) (*service.MenuPage, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	page, err := h.catalog.GetMenu(ctx, tenantID, service.MenuQuery{
		Category:        req.Category,
		Cursor:          req.Cursor,
		Limit:           req.Limit,
		IncludeInactive: req.IncludeInactive,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &page, nil
}

func (h *GRPCHandler) GetMenuItem(ctx context.Context, req *ItemRequest) (*domain.CatalogView, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	view, err := h.catalog.GetMenuItem(ctx, tenantID, req.ItemID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &view, nil
}

func (h *GRPCHandler) GetInventory(ctx context.Context, _ *Empty) (*service.InventoryReport, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	report, err := h.catalog.GetInventory(ctx, tenantID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &report, nil
}

func (h *GRPCHandler) GetInventoryItem(ctx context.Context, req *ItemRequest) (*service.InventoryEntry, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := h.catalog.GetInventoryItem(ctx, tenantID, req.ItemID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &entry, nil
}

func (h *GRPCHandler) UpsertMenuItem(ctx context.Context, req *domain.MenuItem) (*domain.MenuItem, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	item, err := h.catalog.UpsertMenuItem(ctx, tenantID, *req)
	if err != nil {
		return nil, grpcError(err)
	}
	return &item, nil
}

func (h *GRPCHandler) UpsertModifierGroup(ctx context.Context, req *domain.ModifierGroup) (*domain.ModifierGroup, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	group, err := h.catalog.UpsertModifierGroup(ctx, tenantID, *req)
	if err != nil {
		return nil, grpcError(err)
	}
	return &group, nil
}

func (h *GRPCHandler) AdjustStock(ctx context.Context, req *AdjustStockRequest) (*service.InventoryEntry, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := h.catalog.AdjustStock(ctx, tenantID, req.ItemID, req.Delta)
	if err != nil {
		return nil, grpcError(err)
	}
	return &entry, nil
}

func (h *GRPCHandler) SetThreshold(ctx context.Context, req *SetThresholdRequest) (*service.InventoryEntry, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := h.catalog.SetThreshold(ctx, tenantID, req.ItemID, req.Threshold)
	if err != nil {
		return nil, grpcError(err)
	}
	return &entry, nil
}

func (h *GRPCHandler) ListPricingRules(ctx context.Context, _ *Empty) (*RuleList, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := h.catalog.PricingRules(ctx, tenantID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &RuleList{TenantID: domain.TenantID(tenantID), Rules: rules}, nil
}

func (h *GRPCHandler) UpsertPricingRule(ctx context.Context, req *domain.PricingRule) (*domain.PricingRule, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	rule, err := h.catalog.UpsertPricingRule(ctx, tenantID, *req)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rule, nil
}

func (h *GRPCHandler) DeactivatePricingRule(ctx context.Context, req *RuleRequest) (*domain.PricingRule, error) {
	tenantID, err := tenantFromMetadata(ctx)
	if err != nil {
		return nil, err
	}
	rule, err := h.catalog.DeactivatePricingRule(ctx, tenantID, req.RuleID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rule, nil
}

func tenantFromMetadata(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(TenantMetadataKey)
	if len(values) == 0 || values[0] == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s metadata is required", TenantMetadataKey)
	}
	return values[0], nil
}

func grpcCode(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.KindTenantNotFound, domain.KindItemNotFound, domain.KindRuleNotFound:
		return codes.NotFound
	case domain.KindInsufficientStock:
		return codes.FailedPrecondition
	case domain.KindInvalidRule, domain.KindValidation:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

func grpcError(err error) error {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(grpcCode(kind), err.Error())
}
