package rockset

// Endpoint names a resource collection under /v1/orgs/self
type Endpoint string

const (
	EndpointUsers        Endpoint = "users"
	EndpointCollections  Endpoint = "collections"
	EndpointIntegrations Endpoint = "integrations"
	EndpointLambdas      Endpoint = "lambdas"
	EndpointAliases      Endpoint = "aliases"
	EndpointViews        Endpoint = "views"
	EndpointWorkspaces   Endpoint = "ws"
)

// Endpoints returns every exported endpoint in processing order
func Endpoints() []Endpoint {
	return []Endpoint{
		EndpointUsers,
		EndpointCollections,
		EndpointIntegrations,
		EndpointLambdas,
		EndpointAliases,
		EndpointViews,
		EndpointWorkspaces,
	}
}

func (e Endpoint) String() string {
	return string(e)
}
