package enum

// ── Group A: State machines ──

// Dine-in order lifecycle. NEW and PREPARING are shared with online orders.
const (
	OrderStatusNew       = "NEW"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusBilled    = "BILLED"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

// Online order branch.
const (
	OrderStatusAccepted       = "ACCEPTED"
	OrderStatusFoodReady      = "FOOD_READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
)

const (
	OrderItemStatusPending   = "PENDING"
	OrderItemStatusPreparing = "PREPARING"
	OrderItemStatusReady     = "READY"
	OrderItemStatusServed    = "SERVED"
)

const (
	KOTStatusNew     = "NEW"
	KOTStatusPrinted = "PRINTED"
)

// ── Group B: Order channels ──

const (
	OrderTypeDineIn = "DINE_IN"
	OrderTypeOnline = "ONLINE"
)

// Online platforms are configurable labels; unknown values are accepted.
const (
	PlatformSwiggy = "SWIGGY"
	PlatformZomato = "ZOMATO"
	PlatformDirect = "DIRECT"
)

// ── Group C: Menu categories (configurable labels) ──

const (
	CategoryStarters = "STARTERS"
	CategoryMains    = "MAINS"
	CategoryBreads   = "BREADS"
	CategoryDesserts = "DESSERTS"
	CategoryDrinks   = "DRINKS"
)
