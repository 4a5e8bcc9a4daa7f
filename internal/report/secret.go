package report

import (
	"fmt"
	"path/filepath"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/state"
)

// PeerSecret builds a Secret manifest that carries the cluster-side
// configuration file clientConfig under its base name.
func PeerSecret(st *state.ProvisioningState, cfg *config.Config, clientConfigPath string, clientConfig []byte) ([]byte, error) {
	secret := &corev1.Secret{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Secret",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.Report.SecretName,
			Namespace: cfg.Report.SecretNamespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "vpsgate",
				"vpsgate.io/variant":           string(st.Variant),
			},
			Annotations: map[string]string{
				"vpsgate.io/domain":    st.Domain,
				"vpsgate.io/public-ip": st.PublicIP,
			},
		},
		Type: corev1.SecretTypeOpaque,
		StringData: map[string]string{
			filepath.Base(clientConfigPath): string(clientConfig),
		},
	}

	out, err := yaml.Marshal(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal secret: %w", err)
	}
	return out, nil
}
