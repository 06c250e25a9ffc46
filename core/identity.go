package core

import "strings"

const (
	walletDisplayPrefix  = "Wallet "
	walletAddressHead    = 6
	walletAddressTail    = 4
	walletAddressJoining = "..."
)

// TruncateAddress keeps the first 6 and last 4 characters of address joined
// by an ellipsis, whatever the address length. Head and tail overlap on
// addresses shorter than 10 characters.
func TruncateAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	runes := []rune(address)
	head := runes[:min(walletAddressHead, len(runes))]
	tail := runes[max(0, len(runes)-walletAddressTail):]
	return string(head) + walletAddressJoining + string(tail)
}

func WalletDisplayName(address string) string {
	return walletDisplayPrefix + TruncateAddress(address)
}

// NormalizeIdentity projects the authoritative source into the shared identity
// shape. It returns nil when method is none or the authoritative source has
// nothing to project.
func NormalizeIdentity(
	method AuthMethod,
	session CredentialsSession,
	wallet *Wallet,
	placeholder string,
) *NormalizedIdentity {
	switch method {
	case AuthMethodCredentials:
		if session.User == nil {
			return nil
		}
		name := strings.TrimSpace(session.User.Name)
		if name == "" {
			name = placeholder
		}
		email := session.User.Email
		return &NormalizedIdentity{
			ID:          session.User.ID,
			DisplayName: name,
			Email:       &email,
		}
	case AuthMethodWallet:
		if wallet == nil {
			return nil
		}
		address := wallet.Address
		return &NormalizedIdentity{
			ID:          address,
			DisplayName: WalletDisplayName(address),
			Address:     &address,
		}
	default:
		return nil
	}
}

// ResolveMethod applies the fixed priority rule: an authenticated credentials
// session wins over a connected wallet.
func ResolveMethod(session CredentialsSession, wallet *Wallet) AuthMethod {
	if session.Authenticated && session.User != nil {
		return AuthMethodCredentials
	}
	if wallet != nil {
		return AuthMethodWallet
	}
	return AuthMethodNone
}

func cloneWallet(wallet *Wallet) *Wallet {
	if wallet == nil {
		return nil
	}
	copied := *wallet
	return &copied
}

func cloneSession(session CredentialsSession) CredentialsSession {
	out := CredentialsSession{Authenticated: session.Authenticated}
	if session.User != nil {
		user := *session.User
		out.User = &user
	}
	return out
}
