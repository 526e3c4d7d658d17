package entity

// Roles del token. Las rutas de administración de inventario exigen RoleAdmin.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)
