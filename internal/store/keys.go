package store

// Keyspace del KV. El clientID actúa como namespace: todas las keys de un
// tenant comparten prefijo, lo que habilita scans acotados por tenant.

// TenantKey arma la key del registro de tenant.
func TenantKey(clientID string) string { return "tenant:" + clientID }

// UserKey arma la key de la fila de usuario.
func UserKey(clientID, userID string) string { return "user:" + clientID + ":" + userID }

// UserPrefix es el prefijo de scan para listar usuarios de un tenant.
func UserPrefix(clientID string) string { return "user:" + clientID + ":" }

// IdentifierKey arma la key del índice identifier -> userID.
func IdentifierKey(clientID, identifier string) string {
	return "uident:" + clientID + ":" + identifier
}

// InviteKey arma la key de un invite link.
func InviteKey(id string) string { return "invite:" + id }
