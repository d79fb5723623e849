package api

const (
	AuthService  = "meetauth.auth.Auth"
	AdminService = "meetauth.admin.Admin"

	// AdminMethodPrefix marks methods that need an admin principal.
	AdminMethodPrefix = "/meetauth.admin."

	LoginMethod  = "/" + AuthService + "/Login"
	WhoAmIMethod = "/" + AuthService + "/WhoAmI"
	SpendMethod  = "/" + AuthService + "/Spend"

	GetUserMethod    = "/" + AdminService + "/GetUser"
	SetAdminMethod   = "/" + AdminService + "/SetAdmin"
	SetBannedMethod  = "/" + AdminService + "/SetBanned"
	SetActiveMethod  = "/" + AdminService + "/SetActive"
	CreditMethod     = "/" + AdminService + "/Credit"
	SetBalanceMethod = "/" + AdminService + "/SetBalance"
)
