package common

// DefaultAdminUserID is the account created when the user table is empty at
// startup. Only this account may trigger open-data refreshes.
const DefaultAdminUserID = "admin"

// DefaultAdminPassword is the initial password of DefaultAdminUserID.
const DefaultAdminPassword = "admin"

// SessionTokenPrefix prefixes every issued session token.
const SessionTokenPrefix = "sess_"
