// Package execution resolves the human-readable name of the platform execution
// this task belongs to. Uploaded logs are namespaced by that name.
package execution

import (
	"context"
	"fmt"
	"os"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	coretypev1 "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/client-go/rest"
)

// Resolver returns the current execution's name
type Resolver interface {
	ExecutionName(ctx context.Context) (string, error)
}

// Static is a name fixed up front
type Static string

func (s Static) ExecutionName(ctx context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("no execution name configured")
	}
	return string(s), nil
}

// PodLabelResolver reads the execution name off this task's own pod.
// The label is checked first, then an annotation with the same key.
type PodLabelResolver struct {
	Pods  coretypev1.PodInterface
	Pod   string
	Label string
}

func (r *PodLabelResolver) ExecutionName(ctx context.Context) (string, error) {
	if r.Pod == "" {
		return "", fmt.Errorf("pod name unknown")
	}
	pod, err := r.Pods.Get(ctx, r.Pod, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get pod %v: %v", r.Pod, err)
	}
	if name := pod.GetLabels()[r.Label]; name != "" {
		return name, nil
	}
	if name := pod.GetAnnotations()[r.Label]; name != "" {
		return name, nil
	}
	return "", fmt.Errorf("pod %v carries no %v label", r.Pod, r.Label)
}

// podClient follows the in-cluster config.
// namespace is inherited from whatever namespace the task pod was scheduled in
func podClient(namespace string) (coretypev1.PodInterface, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, err
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}
	if namespace == "" {
		namespace = inClusterNamespace()
	}
	return clientset.CoreV1().Pods(namespace), nil
}

const serviceAccountNamespace = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

func inClusterNamespace() string {
	b, err := os.ReadFile(serviceAccountNamespace)
	if err != nil {
		return metav1.NamespaceDefault
	}
	return strings.TrimSpace(string(b))
}

// NewResolver prefers a static name; otherwise it looks the name up on the pod.
// The k8s client is only built when it is needed.
func NewResolver(static, namespace, pod, label string) Resolver {
	if static != "" {
		return Static(static)
	}
	return &lazyPodResolver{namespace: namespace, pod: pod, label: label}
}

type lazyPodResolver struct {
	namespace string
	pod       string
	label     string
}

func (r *lazyPodResolver) ExecutionName(ctx context.Context) (string, error) {
	pods, err := podClient(r.namespace)
	if err != nil {
		return "", fmt.Errorf("failed to build k8s client: %v", err)
	}
	return (&PodLabelResolver{Pods: pods, Pod: r.pod, Label: r.label}).ExecutionName(ctx)
}
