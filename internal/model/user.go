package model

import (
	"slices"
	"time"
)

// Role задаёт роль пользователя бэк-офиса.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Permission задаёт отдельное право доступа.
type Permission string

const (
	PermissionViewDashboard  Permission = "view_dashboard"
	PermissionViewProducts   Permission = "view_products"
	PermissionEditProducts   Permission = "edit_products"
	PermissionManageUsers    Permission = "manage_users"
	PermissionManageProducts Permission = "manage_products"
	PermissionManageOrders   Permission = "manage_orders"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionViewDashboard,
		PermissionViewProducts,
		PermissionEditProducts,
		PermissionManageUsers,
		PermissionManageProducts,
		PermissionManageOrders,
	},
	RoleUser: {
		PermissionViewDashboard,
		PermissionViewProducts,
	},
}

// User описывает аутентифицированного пользователя.
type User struct {
	ID           string
	Email        string
	Role         Role
	Permissions  []Permission
	PasswordHash []byte
	CreatedAt    time.Time
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasPermission проверяет право пользователя с учётом его роли.
// Администратору разрешено всё.
func (u *User) HasPermission(p Permission) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin() {
		return true
	}
	return slices.Contains(u.Permissions, p) || slices.Contains(rolePermissions[u.Role], p)
}

// ParseRole возвращает роль по строке; неизвестные значения понижаются до RoleUser.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}
