package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmespath/go-jmespath"

	"github.com/dropDatabas3/brokerjohn/internal/store"
)

// Reglas de extracción de identidad por kind. Contrato clave: OIDC e
// introspection confían SOLO en `sub` (sin fallback a email), porque el
// email puede cambiar y `sub` es el id estable del IdP.

func extractorFor(pc store.ProviderConfig) (ExtractFunc, error) {
	switch pc.Kind {
	case store.ProviderPassword, store.ProviderCode:
		return extractContact, nil

	case store.ProviderOIDC, store.ProviderIntrospection:
		return extractSub, nil

	case store.ProviderOAuth2Vendor:
		if pc.OAuth2 == nil || pc.OAuth2.WhoAmIURL == "" {
			return nil, fmt.Errorf("%w: oauth2_vendor sin whoAmIUrl", ErrConfig)
		}
		return vendorExtractor(pc.OAuth2), nil

	case store.ProviderOAuth2Generic:
		if pc.OAuth2 == nil || pc.OAuth2.IdentifierPath == "" {
			return nil, fmt.Errorf("%w: oauth2_generic sin identifierPath", ErrConfig)
		}
		// compilar acá convierte un path roto en error de Build, no en un
		// 401 misterioso por request
		compiled, err := jmespath.Compile(pc.OAuth2.IdentifierPath)
		if err != nil {
			return nil, fmt.Errorf("%w: identifierPath %q: %v", ErrConfig, pc.OAuth2.IdentifierPath, err)
		}
		return genericExtractor(compiled), nil
	}
	return nil, fmt.Errorf("%w: kind desconocido %q", ErrConfig, pc.Kind)
}

func extractContact(_ context.Context, raw map[string]any) (string, error) {
	if email, ok := raw["email"].(string); ok && email != "" {
		return email, nil
	}
	if phone, ok := raw["phone"].(string); ok && phone != "" {
		return phone, nil
	}
	return "", fmt.Errorf("payload sin email ni phone")
}

func extractSub(_ context.Context, raw map[string]any) (string, error) {
	sub, ok := raw["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("payload sin claim sub")
	}
	return sub, nil
}

var whoAmIClient = &http.Client{Timeout: 10 * time.Second}

// vendorExtractor consulta el endpoint "who am i" del vendor con el access
// token recién obtenido. Cualquier no-2xx es fallo duro del login.
func vendorExtractor(s *store.OAuth2Settings) ExtractFunc {
	idField := s.IDField
	if idField == "" {
		idField = "id"
	}
	whoAmIURL := s.WhoAmIURL

	return func(ctx context.Context, raw map[string]any) (string, error) {
		token, _ := raw["access_token"].(string)
		if token == "" {
			return "", fmt.Errorf("payload sin access_token")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, whoAmIURL, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := whoAmIClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("whoami: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", fmt.Errorf("whoami devolvió %d", resp.StatusCode)
		}

		var body map[string]any
		if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<10)).Decode(&body); err != nil {
			return "", fmt.Errorf("whoami: %w", err)
		}

		id := stringify(body[idField])
		if id == "" {
			return "", fmt.Errorf("whoami sin campo %q", idField)
		}
		return id, nil
	}
}

// genericExtractor aplica el jmespath configurado sobre el payload crudo.
func genericExtractor(path *jmespath.JMESPath) ExtractFunc {
	return func(_ context.Context, raw map[string]any) (string, error) {
		result, err := path.Search(map[string]any(raw))
		if err != nil {
			return "", fmt.Errorf("identifierPath: %w", err)
		}
		id := stringify(result)
		if id == "" {
			return "", fmt.Errorf("identifierPath no resolvió un identificador")
		}
		return id, nil
	}
}

// stringify acepta strings y números (ids numéricos de vendors viejos).
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	case json.Number:
		return x.String()
	}
	return ""
}
