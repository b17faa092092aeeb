// Package ncclient is a NETCONF management client.
//
// A Connection owns the lifecycle of one device connection and the single Session established over it.
// The Session issues datastore operations (get, get-config, lock, unlock, edit-config, copy-config,
// commit and discard-changes) against one of the Running, Startup or Candidate datastores, and
// delivers read results as a single xml document.
//
//	conn := ncclient.NewConnection("router", "830")
//	if err := conn.Connect(ctx, "admin", "secret"); err != nil {
//		return err
//	}
//	defer conn.Disconnect()
//
//	doc, err := conn.Session().GetConfig(ncclient.Running, "")
//
// The NETCONF protocol itself is provided by the netconf/ops package, consumed through the Engine interface.
package ncclient
