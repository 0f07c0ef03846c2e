/*
Package ports defines the boundary interfaces of the warroom core.

Adapters under internal/adapters implement these interfaces; the
orchestrator depends only on the ports. The storetest subpackage
holds a reusable contract suite that every SessionStore adapter must
pass.
*/
package ports
