package nav

import "strings"

// View идентифицирует активный экран приложения.
type View int

const (
	ViewHome View = iota
	ViewLogin
	ViewRegister
	ViewCart
	ViewFavorites
	ViewDetails
	ViewContacts
	ViewDeliveryAndPayment
	ViewCheckout
	ViewMyOrders
	ViewMyProfile
	ViewProductDetail
	ViewOrderConfirmation
	ViewAdminDashboard
	ViewAdminProducts
	ViewAdminAccessories
	ViewAdminOrders
	ViewAdminUsers
	ViewAdminProductNew
	ViewAdminProductEdit
	ViewAdminAccessoryNew
	ViewAdminAccessoryEdit
	ViewAdminUserEdit
)

var viewNames = map[View]string{
	ViewHome:               "home",
	ViewLogin:              "login",
	ViewRegister:           "register",
	ViewCart:               "cart",
	ViewFavorites:          "favorites",
	ViewDetails:            "details",
	ViewContacts:           "contacts",
	ViewDeliveryAndPayment: "delivery-and-payment",
	ViewCheckout:           "checkout",
	ViewMyOrders:           "my-orders",
	ViewMyProfile:          "my-profile",
	ViewProductDetail:      "product-detail",
	ViewOrderConfirmation:  "order-confirmation",
	ViewAdminDashboard:     "admin-dashboard",
	ViewAdminProducts:      "admin-products",
	ViewAdminAccessories:   "admin-accessories",
	ViewAdminOrders:        "admin-orders",
	ViewAdminUsers:         "admin-users",
	ViewAdminProductNew:    "admin-product-new",
	ViewAdminProductEdit:   "admin-product-edit",
	ViewAdminAccessoryNew:  "admin-accessory-new",
	ViewAdminAccessoryEdit: "admin-accessory-edit",
	ViewAdminUserEdit:      "admin-user-edit",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "unknown"
}

// Route — результат разрешения пути: экран плюс параметр из пути, если есть.
type Route struct {
	View  View
	Param string
}

// Resolve превращает путь в Route. Чистая функция; порядок разбора:
// админский префикс с вложенным разрешением, параметризованные детальные
// маршруты, таблица статичных листьев, по умолчанию — главная.
func Resolve(path string) Route {
	if strings.HasPrefix(path, "/admin") {
		return resolveAdmin(path)
	}

	if strings.HasPrefix(path, "/order-confirmation/") {
		return Route{View: ViewOrderConfirmation, Param: segment(path, 2)}
	}
	if strings.HasPrefix(path, "/product/") {
		return Route{View: ViewProductDetail, Param: segment(path, 2)}
	}

	switch path {
	case "/login":
		return Route{View: ViewLogin}
	case "/register":
		return Route{View: ViewRegister}
	case "/cart":
		return Route{View: ViewCart}
	case "/favorites":
		return Route{View: ViewFavorites}
	case "/details":
		return Route{View: ViewDetails}
	case "/contacts":
		return Route{View: ViewContacts}
	case "/delivery-and-payment":
		return Route{View: ViewDeliveryAndPayment}
	case "/checkout":
		return Route{View: ViewCheckout}
	case "/my-orders":
		return Route{View: ViewMyOrders}
	case "/my-profile":
		return Route{View: ViewMyProfile}
	default:
		return Route{View: ViewHome}
	}
}

// resolveAdmin разбирает хвост после /admin по тем же правилам.
func resolveAdmin(path string) Route {
	if path == "/admin/product/new" {
		return Route{View: ViewAdminProductNew}
	}
	if strings.HasPrefix(path, "/admin/product/edit/") {
		return Route{View: ViewAdminProductEdit, Param: segment(path, 4)}
	}

	if path == "/admin/accessory/new" {
		return Route{View: ViewAdminAccessoryNew}
	}
	if strings.HasPrefix(path, "/admin/accessory/edit/") {
		return Route{View: ViewAdminAccessoryEdit, Param: segment(path, 4)}
	}

	if strings.HasPrefix(path, "/admin/user/edit/") {
		return Route{View: ViewAdminUserEdit, Param: segment(path, 4)}
	}

	switch path {
	case "/admin/products":
		return Route{View: ViewAdminProducts}
	case "/admin/accessories":
		return Route{View: ViewAdminAccessories}
	case "/admin/orders":
		return Route{View: ViewAdminOrders}
	case "/admin/users":
		return Route{View: ViewAdminUsers}
	default:
		return Route{View: ViewAdminDashboard}
	}
}

func segment(path string, i int) string {
	parts := strings.Split(path, "/")
	if i < len(parts) {
		return parts[i]
	}
	return ""
}
